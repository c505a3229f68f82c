package roster

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Fleur41/HealthSense/internal/apperr"
	"github.com/Fleur41/HealthSense/pkg/caldate"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/roster", h.List)
	api.GET("/roster/stats", h.Stats)
	api.GET("/roster/export", h.Export)
	api.GET("/visits", h.VisitsOn)
}

func dateParam(c echo.Context, name string) (caldate.Date, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return caldate.Date{}, nil
	}
	d, err := caldate.Parse(raw)
	if err != nil {
		return caldate.Date{}, echo.NewHTTPError(http.StatusBadRequest, name+" must be YYYY-MM-DD")
	}
	return d, nil
}

func (h *Handler) List(c echo.Context) error {
	date, err := dateParam(c, "visit_date")
	if err != nil {
		return err
	}
	list, err := h.svc.PatientsWithLatestStatus(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	if !date.IsZero() {
		list = FilterByVisitDate(list, date)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) Export(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.svc.ExportXLSX(c.Request().Context(), &buf); err != nil {
		return apperr.HTTPError(err)
	}
	name := fmt.Sprintf("patients-%s.xlsx", h.svc.today())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (h *Handler) VisitsOn(c echo.Context) error {
	date, err := dateParam(c, "date")
	if err != nil {
		return err
	}
	if date.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}
	out, err := h.svc.VisitsOn(c.Request().Context(), date)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}
