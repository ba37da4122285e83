package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/glossa/internal/auth"
)

type authSessionRequest struct {
	Password string `json:"password"`
}

func (s *Server) authEnabled() bool {
	return strings.TrimSpace(s.opts.AdminPasswordHash) != ""
}

// requireAuth gates a route group behind a bearer token. With no admin
// password configured the API stays open.
func (s *Server) requireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !s.authEnabled() {
				return next(c)
			}

			token, found := bearerToken(c)
			if !found || !s.tokens.Validate(token) {
				return unauthorizedResponse(c)
			}
			return next(c)
		}
	}
}

func (s *Server) handleCreateAuthSession(c echo.Context) error {
	if !s.authEnabled() {
		return fail(c, http.StatusBadRequest, "Password authentication is disabled", nil)
	}

	var req authSessionRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	password := strings.TrimSpace(req.Password)
	if password == "" {
		return failValidation(c, map[string]string{"password": "is required"})
	}

	if !auth.VerifyPassword(password, s.opts.AdminPasswordHash) {
		return fail(c, http.StatusUnauthorized, "Invalid password", nil)
	}

	token, expiresAt, err := s.tokens.Issue()
	if err != nil {
		s.logger.Error().Err(err).Msg("issue auth token failed")
		return internalError(c, "Failed to create auth session")
	}

	return success(c, map[string]any{
		"token":      token,
		"expires_at": expiresAt.UTC(),
	})
}

func (s *Server) handleDeleteAuthSession(c echo.Context) error {
	if token, found := bearerToken(c); found {
		s.tokens.Revoke(token)
	}
	return success(c, map[string]any{"logged_out": true})
}

func bearerToken(c echo.Context) (string, bool) {
	if c == nil || c.Request() == nil {
		return "", false
	}

	header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

func unauthorizedResponse(c echo.Context) error {
	return fail(c, http.StatusUnauthorized, "Authentication required", nil)
}
