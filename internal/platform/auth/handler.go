package auth

import (
	"errors"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
)

// Handler exposes sign-in and sign-up against the identity provider.
type Handler struct {
	auth Authenticator
}

func NewHandler(a Authenticator) *Handler {
	return &Handler{auth: a}
}

// RegisterRoutes mounts the public auth endpoints; g must not require a token.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/signin", h.SignIn)
	g.POST("/auth/signup", h.SignUp)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (cr credentials) validate() error {
	if _, err := mail.ParseAddress(cr.Email); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "a valid email is required")
	}
	if len(cr.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters")
	}
	return nil
}

func (h *Handler) SignIn(c echo.Context) error {
	var cr credentials
	if err := c.Bind(&cr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := cr.validate(); err != nil {
		return err
	}
	s, err := h.auth.SignIn(c.Request().Context(), cr.Email, cr.Password)
	if err != nil {
		return providerHTTPError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) SignUp(c echo.Context) error {
	var cr credentials
	if err := c.Bind(&cr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := cr.validate(); err != nil {
		return err
	}
	s, err := h.auth.SignUp(c.Request().Context(), cr.Email, cr.Password)
	if err != nil {
		return providerHTTPError(err)
	}
	return c.JSON(http.StatusCreated, s)
}

func providerHTTPError(err error) error {
	var pe *ProviderError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrEmailExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &pe):
		return echo.NewHTTPError(http.StatusBadRequest, pe.Code)
	default:
		return echo.NewHTTPError(http.StatusBadGateway, "identity provider unavailable")
	}
}
