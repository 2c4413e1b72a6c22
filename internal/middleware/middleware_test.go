package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop-auth/internal/logging"
	"github.com/Skotchmaster/shop-auth/internal/tokens"
)

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	e := echo.New()
	called := false
	e.Pre(CORS("*"))
	e.POST("/", func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.False(t, called)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "Content-Type, X-User-Id, X-Auth-Token, Authorization", rec.Header().Get(echo.HeaderAccessControlAllowHeaders))
	assert.Equal(t, "86400", rec.Header().Get(echo.HeaderAccessControlMaxAge))
}

func TestCORS_SimpleRequest(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Pre(CORS("https://shop.example"))
	e.POST("/", func(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{"ok": true}) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods))
}

func TestTokenFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer abc"}, want: "abc"},
		{name: "bearer lowercase scheme", headers: map[string]string{"Authorization": "bearer abc"}, want: "abc"},
		{name: "x-auth-token", headers: map[string]string{"X-Auth-Token": "xyz"}, want: "xyz"},
		{name: "basic falls back", headers: map[string]string{"Authorization": "Basic Zm9v", "X-Auth-Token": "xyz"}, want: "xyz"},
		{name: "bearer wins", headers: map[string]string{"Authorization": "Bearer abc", "X-Auth-Token": "xyz"}, want: "abc"},
		{name: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, TokenFromRequest(req))
		})
	}
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := tokens.NewService([]byte("mw-secret"), time.Hour)
	require.NoError(t, err)
	svc.WithClock(func() time.Time { return now })

	valid, err := svc.Issue(7, "alice")
	require.NoError(t, err)

	old, err := tokens.NewService([]byte("mw-secret"), time.Hour)
	require.NoError(t, err)
	old.WithClock(func() time.Time { return now.Add(-2 * time.Hour) })
	expired, err := old.Issue(7, "alice")
	require.NoError(t, err)

	e := echo.New()
	auth := NewBearerAuth(svc)
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user_id":  c.Get(CtxUserID),
			"username": c.Get(CtxUsername),
		})
	}, auth.RequireAuth)

	tests := []struct {
		name     string
		header   string
		value    string
		wantCode int
		wantMsg  string
	}{
		{name: "valid bearer", header: "Authorization", value: "Bearer " + valid, wantCode: http.StatusOK},
		{name: "valid x-auth-token", header: HeaderAuthToken, value: valid, wantCode: http.StatusOK},
		{name: "missing", wantCode: http.StatusUnauthorized, wantMsg: "Missing token"},
		{name: "garbage", header: "Authorization", value: "Bearer nope", wantCode: http.StatusUnauthorized, wantMsg: "Invalid token"},
		{name: "expired", header: "Authorization", value: "Bearer " + expired, wantCode: http.StatusUnauthorized, wantMsg: "Token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.JSONEq(t, `{"user_id":7,"username":"alice"}`, rec.Body.String())
				return
			}
			assert.Contains(t, rec.Body.String(), tt.wantMsg)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := logging.NewWithWriter(&buf, "debug")

	e := echo.New()
	e.Use(RequestLogger(base))
	e.GET("/ok", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside_handler")
		return c.NoContent(http.StatusOK)
	})
	e.GET("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-1")
	e.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var inside, okDone, failDone map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inside))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &okDone))
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &failDone))

	assert.Equal(t, "inside_handler", inside["msg"])
	assert.Equal(t, "rid-1", inside["request_id"])
	assert.Equal(t, "/ok", inside["path"])

	assert.Equal(t, "request completed", okDone["msg"])
	assert.EqualValues(t, 200, okDone["status"])

	assert.Equal(t, "WARN", failDone["level"])
	assert.EqualValues(t, http.StatusTeapot, failDone["status"])
}
