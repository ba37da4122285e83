package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"horse.fit/glossa/internal/auth"
)

func TestRequireAuthOpenWithoutPassword(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ts.server.requireAuth()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("requireAuth returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	ts := newTestServer(t, Options{AdminPasswordHash: hash})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ts.server.requireAuth()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("requireAuth returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthSessionFlow(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	ts := newTestServer(t, Options{AdminPasswordHash: hash})

	_, c, rec := newJSONContext(http.MethodPost, "/api/v1/auth/session", `{"password":"secret"}`)
	if err := ts.server.handleCreateAuthSession(c); err != nil {
		t.Fatalf("handleCreateAuthSession returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}

	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	if envelope.Data.Token == "" {
		t.Fatal("expected a bearer token")
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+envelope.Data.Token)
	authedRec := httptest.NewRecorder()
	authedCtx := e.NewContext(req, authedRec)

	handler := ts.server.requireAuth()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(authedCtx); err != nil {
		t.Fatalf("requireAuth returned error: %v", err)
	}
	if authedRec.Code != http.StatusOK {
		t.Fatalf("expected the issued token to authorize, got status %d", authedRec.Code)
	}
}

func TestHandleCreateAuthSessionRejectsWrongPassword(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	ts := newTestServer(t, Options{AdminPasswordHash: hash})

	_, c, rec := newJSONContext(http.MethodPost, "/api/v1/auth/session", `{"password":"wrong"}`)
	if err := ts.server.handleCreateAuthSession(c); err != nil {
		t.Fatalf("handleCreateAuthSession returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandleCreateAuthSessionWhenDisabled(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})

	_, c, rec := newJSONContext(http.MethodPost, "/api/v1/auth/session", `{"password":"anything"}`)
	if err := ts.server.handleCreateAuthSession(c); err != nil {
		t.Fatalf("handleCreateAuthSession returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleDeleteAuthSessionRevokesToken(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	ts := newTestServer(t, Options{AdminPasswordHash: hash})

	token, _, err := ts.server.tokens.Issue()
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/auth/session", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := ts.server.handleDeleteAuthSession(c); err != nil {
		t.Fatalf("handleDeleteAuthSession returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}
	if ts.server.tokens.Validate(token) {
		t.Fatal("expected the token to be revoked")
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		want   string
		found  bool
	}{
		{header: "Bearer abc123", want: "abc123", found: true},
		{header: "bearer abc123", want: "abc123", found: true},
		{header: "Bearer   abc123  ", want: "abc123", found: true},
		{header: "Basic abc123", want: "", found: false},
		{header: "Bearer ", want: "", found: false},
		{header: "", want: "", found: false},
	}

	e := echo.New()
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set(echo.HeaderAuthorization, tc.header)
		}
		c := e.NewContext(req, httptest.NewRecorder())

		token, found := bearerToken(c)
		if found != tc.found || token != tc.want {
			t.Fatalf("header %q: got (%q, %v) want (%q, %v)", tc.header, token, found, tc.want, tc.found)
		}
	}
}
