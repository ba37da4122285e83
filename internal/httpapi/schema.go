package httpapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed session_request.schema.json
var sessionRequestSchemaJSON string

// sessionRequest is a validated session-create payload. Exactly one of Text
// and URL is set.
type sessionRequest struct {
	Text           string `json:"text,omitempty"`
	URL            string `json:"url,omitempty"`
	Language       string `json:"language,omitempty"`
	SourceLanguage string `json:"source_language,omitempty"`
}

var sessionSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("session_request.schema.json", sessionRequestSchemaJSON)
})

// validateSessionRequest checks the payload against the embedded JSON Schema
// and the cross-field rules the schema cannot express.
func validateSessionRequest(payload []byte) (*sessionRequest, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := sessionSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	return bindSessionRequest(value)
}

// bindSessionRequest converts the schema-checked document into the typed
// request, trimming fields and enforcing the URL rules.
func bindSessionRequest(value any) (*sessionRequest, error) {
	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}
	var req sessionRequest
	if err := json.Unmarshal(normalized, &req); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	req.Text = strings.TrimSpace(req.Text)
	req.URL = strings.TrimSpace(req.URL)
	req.Language = strings.TrimSpace(req.Language)
	req.SourceLanguage = strings.TrimSpace(req.SourceLanguage)

	if req.Text == "" && req.URL == "" {
		return nil, fmt.Errorf("either text or url must be provided")
	}
	if req.URL != "" {
		if err := validateSelectionURL(req.URL); err != nil {
			return nil, err
		}
	}
	return &req, nil
}

func validateSelectionURL(page string) error {
	parsed, err := url.ParseRequestURI(page)
	if err != nil {
		return fmt.Errorf("url is not a valid URI: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	return nil
}

// decodeStrictJSON rejects empty bodies and trailing content so the schema
// sees exactly one document.
func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, fmt.Errorf("payload contains trailing content")
	}
	return value, nil
}
