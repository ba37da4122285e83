package httpapi

import (
	"encoding/json"

	"github.com/labstack/echo/v4"

	"horse.fit/glossa/internal/catalog"
	"horse.fit/glossa/internal/settings"
)

type settingsResponse struct {
	TargetLanguage string `json:"target_language"`
}

func (s *Server) handleGetSettings(c echo.Context) error {
	resp, err := s.buildSettingsResponse(c)
	if err != nil {
		s.logger.Error().Err(err).Msg("query settings failed")
		return internalError(c, "Failed to load settings")
	}
	return success(c, map[string]any{"settings": resp})
}

func (s *Server) handlePutSettings(c echo.Context) error {
	var payload map[string]json.RawMessage
	if err := decodeJSONBody(c, &payload); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if len(payload) == 0 {
		return failValidation(c, map[string]string{"body": "at least one settings field is required"})
	}
	for key := range payload {
		switch key {
		case "target_language":
			// Supported.
		default:
			return failValidation(c, map[string]string{key: "is not a supported settings field"})
		}
	}

	if raw, exists := payload["target_language"]; exists {
		var code string
		if err := json.Unmarshal(raw, &code); err != nil {
			return failValidation(c, map[string]string{"target_language": "must be a string"})
		}

		lang := s.catalog.Resolve(code)
		if lang.IsUnknown() {
			return failValidation(c, map[string]string{"target_language": "is not supported"})
		}

		if err := s.prefs.Put(c.Request().Context(), settings.TargetLanguageKey, lang.Code); err != nil {
			s.logger.Error().Err(err).Str("target_language", lang.Code).Msg("persist settings failed")
			return internalError(c, "Failed to update settings")
		}
	}

	resp, err := s.buildSettingsResponse(c)
	if err != nil {
		s.logger.Error().Err(err).Msg("reload settings failed")
		return internalError(c, "Failed to load settings")
	}
	return success(c, map[string]any{"settings": resp})
}

func (s *Server) buildSettingsResponse(c echo.Context) (settingsResponse, error) {
	value, found, err := s.prefs.Get(c.Request().Context(), settings.TargetLanguageKey)
	if err != nil {
		return settingsResponse{}, err
	}

	target := catalog.DefaultTargetCode
	if found {
		if lang := s.catalog.Resolve(value); !lang.IsUnknown() {
			target = lang.Code
		}
	}
	return settingsResponse{TargetLanguage: target}, nil
}
