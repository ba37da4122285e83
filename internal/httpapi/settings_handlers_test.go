package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"horse.fit/glossa/internal/catalog"
	"horse.fit/glossa/internal/settings"
)

type settingsEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		Settings settingsResponse `json:"settings"`
	} `json:"data"`
}

func decodeSettingsEnvelope(t *testing.T, rec *httptest.ResponseRecorder) settingsEnvelope {
	t.Helper()
	var envelope settingsEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode settings envelope: %v\nbody: %s", err, rec.Body.String())
	}
	return envelope
}

func TestHandleGetSettingsDefault(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})

	_, c, rec := newJSONContext(http.MethodGet, "/api/v1/settings", "")
	if err := ts.server.handleGetSettings(c); err != nil {
		t.Fatalf("handleGetSettings returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}

	envelope := decodeSettingsEnvelope(t, rec)
	if envelope.Data.Settings.TargetLanguage != catalog.DefaultTargetCode {
		t.Fatalf("unexpected default target language: got %q want %q",
			envelope.Data.Settings.TargetLanguage, catalog.DefaultTargetCode)
	}
}

func TestHandlePutSettingsStoresTargetLanguage(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})

	_, c, rec := newJSONContext(http.MethodPut, "/api/v1/settings", `{"target_language":"de"}`)
	if err := ts.server.handlePutSettings(c); err != nil {
		t.Fatalf("handlePutSettings returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d\nbody: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	envelope := decodeSettingsEnvelope(t, rec)
	if envelope.Data.Settings.TargetLanguage != "de" {
		t.Fatalf("unexpected target language in response: got %q want %q",
			envelope.Data.Settings.TargetLanguage, "de")
	}
	if stored := ts.prefs.stored(settings.TargetLanguageKey); stored != "de" {
		t.Fatalf("unexpected stored value: got %q want %q", stored, "de")
	}

	_, getCtx, getRec := newJSONContext(http.MethodGet, "/api/v1/settings", "")
	if err := ts.server.handleGetSettings(getCtx); err != nil {
		t.Fatalf("handleGetSettings returned error: %v", err)
	}
	if got := decodeSettingsEnvelope(t, getRec).Data.Settings.TargetLanguage; got != "de" {
		t.Fatalf("stored setting not visible on read: got %q want %q", got, "de")
	}
}

func TestHandlePutSettingsNormalizesRegionTag(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})

	_, c, rec := newJSONContext(http.MethodPut, "/api/v1/settings", `{"target_language":"de-DE"}`)
	if err := ts.server.handlePutSettings(c); err != nil {
		t.Fatalf("handlePutSettings returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d\nbody: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if stored := ts.prefs.stored(settings.TargetLanguageKey); stored != "de" {
		t.Fatalf("region tag not normalized to code: got %q want %q", stored, "de")
	}
}

func TestHandlePutSettingsValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{name: "empty payload", body: `{}`},
		{name: "unknown field", body: `{"theme":"dark"}`},
		{name: "unknown language", body: `{"target_language":"tlh"}`},
		{name: "non-string value", body: `{"target_language":42}`},
		{name: "invalid json", body: `{"target_language":`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t, Options{})

			_, c, rec := newJSONContext(http.MethodPut, "/api/v1/settings", tc.body)
			if err := ts.server.handlePutSettings(c); err != nil {
				t.Fatalf("handlePutSettings returned error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: got %d want %d\nbody: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
			}
			if stored := ts.prefs.stored(settings.TargetLanguageKey); stored != "" {
				t.Fatalf("rejected payload must not persist, stored %q", stored)
			}
		})
	}
}
