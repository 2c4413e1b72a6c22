package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/shop-auth/internal/logging"
	"github.com/Skotchmaster/shop-auth/internal/middleware"
	"github.com/Skotchmaster/shop-auth/internal/transport"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Tokens      middleware.TokenVerifier
	Logger      *slog.Logger

	CORSAllowOrigin string
	// Ready reports whether the datastore is reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

// New builds an echo instance with the middleware chain and routes.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e.Pre(middleware.CORS(d.CORSAllowOrigin))
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableErrorHandler: true,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logging.FromContext(c.Request().Context()).Error("panic_recovered", "error", err, "stack", string(stack))
			return err
		},
	}))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Not ready").SetInternal(err)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMw := middleware.NewBearerAuth(d.Tokens)

	e.POST("/", d.AuthHandler.Dispatch)
	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)

	e.GET("/me", d.AuthHandler.Me, authMw.RequireAuth)

	e.RouteNotFound("/*", unmatchedRoute)
}

// unmatchedRoute answers 405 for every method the service does not route on,
// whatever the path; only GET and HEAD of unknown paths are 404.
func unmatchedRoute(c echo.Context) error {
	r := c.Request()
	if r.URL.Path != "/" && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		return echo.ErrNotFound
	}
	return echo.ErrMethodNotAllowed
}

// ErrorHandler renders every error as {"error": msg}. Messages of 5xx
// errors never carry internal detail.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := msgInternal

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch {
		case code == http.StatusMethodNotAllowed:
			msg = msgMethodNotAllowed
		case code == http.StatusNotFound:
			msg = "Not found"
		case code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable:
			msg = msgInternal
		default:
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, transport.ErrorResponse{Error: msg})
}
