package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const maxJSONBodyBytes = 1 << 20

// jsendResponse is the envelope every API response uses. Status is one of
// success, fail, or error following the jsend convention.
type jsendResponse struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func envelope(status string, data any) jsendResponse {
	return jsendResponse{Status: status, Data: data}
}

func success(c echo.Context, data any) error {
	return successWithStatus(c, http.StatusOK, data)
}

func successWithStatus(c echo.Context, code int, data any) error {
	return c.JSON(code, envelope("success", data))
}

func fail(c echo.Context, code int, message string, data any) error {
	resp := envelope("fail", nil)
	resp.Message = message
	if data != nil {
		resp.Data = data
	}
	return c.JSON(code, resp)
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
		"validation_errors": fieldErrors,
	})
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func internalError(c echo.Context, message string) error {
	resp := envelope("error", nil)
	resp.Message = message
	resp.Code = http.StatusInternalServerError
	return c.JSON(http.StatusInternalServerError, resp)
}

func decodeJSONBody(c echo.Context, target any) error {
	if c == nil || c.Request() == nil || c.Request().Body == nil {
		return fmt.Errorf("request body is required")
	}

	decoder := json.NewDecoder(io.LimitReader(c.Request().Body, maxJSONBodyBytes))
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("must be valid JSON")
	}
	if decoder.More() {
		return fmt.Errorf("must not contain trailing content")
	}
	return nil
}

func readBodyLimited(c echo.Context) ([]byte, error) {
	if c == nil || c.Request() == nil || c.Request().Body == nil {
		return nil, fmt.Errorf("request body is required")
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxJSONBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return body, nil
}
