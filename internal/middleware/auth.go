package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop-auth/internal/logging"
	"github.com/Skotchmaster/shop-auth/internal/tokens"
)

const (
	HeaderAuthToken = "X-Auth-Token"

	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxToken    = "token"
)

type TokenVerifier interface {
	Verify(token string) (*tokens.Identity, error)
}

type BearerAuth struct {
	Tokens TokenVerifier
}

func NewBearerAuth(v TokenVerifier) *BearerAuth {
	return &BearerAuth{Tokens: v}
}

// TokenFromRequest reads "Authorization: Bearer <t>" and falls back to X-Auth-Token.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	return strings.TrimSpace(r.Header.Get(HeaderAuthToken))
}

func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context())

		raw := TokenFromRequest(c.Request())
		if raw == "" {
			l.Warn("auth_failed", "status", 401, "reason", "missing token")
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
		}

		id, err := m.Tokens.Verify(raw)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, tokens.ErrTokenExpired) {
				msg = "Token expired"
			}
			l.Warn("auth_failed", "status", 401, "reason", err.Error())
			return echo.NewHTTPError(http.StatusUnauthorized, msg)
		}

		c.Set(CtxUserID, id.UserID)
		c.Set(CtxUsername, id.Username)
		c.Set(CtxToken, raw)
		return next(c)
	}
}
