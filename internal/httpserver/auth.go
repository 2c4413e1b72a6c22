package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop-auth/internal/logging"
	"github.com/Skotchmaster/shop-auth/internal/middleware"
	"github.com/Skotchmaster/shop-auth/internal/service"
	"github.com/Skotchmaster/shop-auth/internal/transport"
)

const (
	msgInvalidBody      = "Invalid request body"
	msgMissingFields    = "Missing required fields"
	msgMissingLogin     = "Missing login or password"
	msgUserExists       = "User already exists"
	msgInvalidCreds     = "Invalid credentials"
	msgUnauthorized     = "Unauthorized"
	msgMethodNotAllowed = "Method not allowed"
	msgInternal         = "Internal server error"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

// Dispatch serves POST / and routes on the action field of the body.
func (h *AuthHTTP) Dispatch(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_dispatch")

	req, err := bindAuthRequest(c)
	if err != nil {
		l.Warn("dispatch_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidBody)
	}

	switch req.Action {
	case transport.ActionRegister:
		return h.register(c, req)
	case transport.ActionLogin:
		return h.login(c, req)
	default:
		l.Warn("dispatch_error", "status", 405, "action", req.Action)
		return echo.NewHTTPError(http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	req, err := bindAuthRequest(c)
	if err != nil {
		logging.FromContext(c.Request().Context()).Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidBody)
	}
	return h.register(c, req)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	req, err := bindAuthRequest(c)
	if err != nil {
		logging.FromContext(c.Request().Context()).Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidBody)
	}
	return h.login(c, req)
}

// Me must run behind BearerAuth.RequireAuth.
func (h *AuthHTTP) Me(c echo.Context) error {
	token, _ := c.Get(middleware.CtxToken).(string)

	user, err := h.Svc.Me(c.Request().Context(), token)
	if err != nil {
		return toHTTPError(err, msgUnauthorized)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) register(c echo.Context, req transport.AuthRequest) error {
	res, err := h.Svc.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return toHTTPError(err, msgMissingFields)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AuthHTTP) login(c echo.Context, req transport.AuthRequest) error {
	res, err := h.Svc.Login(c.Request().Context(), req.Login, req.Password)
	if err != nil {
		return toHTTPError(err, msgMissingLogin)
	}
	return c.JSON(http.StatusOK, res)
}

// bindAuthRequest decodes the body as JSON whatever the Content-Type says.
func bindAuthRequest(c echo.Context) (transport.AuthRequest, error) {
	var req transport.AuthRequest
	if err := c.Echo().JSONSerializer.Deserialize(c, &req); err != nil {
		return transport.AuthRequest{}, err
	}
	return req, nil
}

func toHTTPError(err error, validationMsg string) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, validationMsg)
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusBadRequest, msgUserExists)
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidCreds)
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, msgUnauthorized)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, msgInternal).SetInternal(err)
	}
}
