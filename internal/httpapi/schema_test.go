package httpapi

import (
	"strings"
	"testing"
)

func TestValidateSessionRequest(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "text selection", payload: `{"text":"Hello world"}`},
		{name: "url selection", payload: `{"url":"https://example.com/article"}`},
		{name: "text with languages", payload: `{"text":"Hallo","language":"en","source_language":"de"}`},
		{name: "empty object", payload: `{}`, wantErr: true},
		{name: "text and url together", payload: `{"text":"hi","url":"https://example.com/a"}`, wantErr: true},
		{name: "empty text", payload: `{"text":""}`, wantErr: true},
		{name: "unknown field", payload: `{"text":"hi","bogus":1}`, wantErr: true},
		{name: "trailing content", payload: `{"text":"hi"} garbage`, wantErr: true},
		{name: "non-object payload", payload: `"just a string"`, wantErr: true},
		{name: "bad url scheme", payload: `{"url":"ftp://example.com/a"}`, wantErr: true},
		{name: "relative url", payload: `{"url":"not-a-url"}`, wantErr: true},
		{name: "whitespace-only text", payload: `{"text":"   "}`, wantErr: true},
	}

	for _, tc := range cases {
		req, err := validateSessionRequest([]byte(tc.payload))
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected an error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if req == nil {
			t.Fatalf("%s: expected a request", tc.name)
		}
	}
}

func TestValidateSessionRequestTrimsFields(t *testing.T) {
	t.Parallel()

	req, err := validateSessionRequest([]byte(`{"text":"  Hello  ","language":" de ","source_language":" en "}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Text != "Hello" {
		t.Fatalf("unexpected text: %q", req.Text)
	}
	if req.Language != "de" || req.SourceLanguage != "en" {
		t.Fatalf("unexpected language fields: %q / %q", req.Language, req.SourceLanguage)
	}
}

func TestValidateSessionRequestErrorNamesCause(t *testing.T) {
	t.Parallel()

	_, err := validateSessionRequest([]byte(`{"url":"ftp://example.com/a"}`))
	if err == nil || !strings.Contains(err.Error(), "scheme") {
		t.Fatalf("expected a scheme error, got %v", err)
	}
}
