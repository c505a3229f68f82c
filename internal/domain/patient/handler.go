package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Fleur41/HealthSense/internal/apperr"
	"github.com/Fleur41/HealthSense/internal/platform/auth"
	"github.com/Fleur41/HealthSense/pkg/caldate"
	"github.com/Fleur41/HealthSense/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/exists", h.CheckNumber)
	api.GET("/patients/by-number/:number", h.GetPatientByNumber)
	api.GET("/patients/:id", h.GetPatient)

	write := api.Group("", auth.RequireRole(auth.RoleClinician))
	write.POST("/patients", h.RegisterPatient)
}

type registerRequest struct {
	ID               uuid.UUID    `json:"id"`
	PatientNumber    string       `json:"patient_number"`
	RegistrationDate caldate.Date `json:"registration_date"`
	FirstName        string       `json:"first_name"`
	LastName         string       `json:"last_name"`
	DateOfBirth      caldate.Date `json:"date_of_birth"`
	Gender           string       `json:"gender"`
}

// Response is a patient with its derived fields.
type Response struct {
	*Patient
	FullName string `json:"full_name"`
	Age      int    `json:"age"`
}

func NewResponse(p *Patient, today caldate.Date) Response {
	return Response{Patient: p, FullName: p.FullName(), Age: p.AgeAt(today)}
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	gender, err := ParseGender(req.Gender)
	if err != nil {
		return apperr.HTTPError(err)
	}

	p := &Patient{
		ID:               req.ID,
		PatientNumber:    req.PatientNumber,
		RegistrationDate: req.RegistrationDate,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		DateOfBirth:      req.DateOfBirth,
		Gender:           gender,
	}
	if _, err := h.svc.RegisterPatient(c.Request().Context(), p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, NewResponse(p, h.svc.Today()))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPatientByID(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, NewResponse(p, h.svc.Today()))
}

func (h *Handler) GetPatientByNumber(c echo.Context) error {
	p, err := h.svc.GetPatientByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, NewResponse(p, h.svc.Today()))
}

func (h *Handler) CheckNumber(c echo.Context) error {
	number := c.QueryParam("number")
	exists, err := h.svc.CheckPatientNumberExists(c.Request().Context(), number)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient_number": number, "exists": exists})
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, err := h.svc.GetAllPatients(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	today := h.svc.Today()
	out := make([]Response, len(patients))
	for i, p := range patients {
		out[i] = NewResponse(p, today)
	}
	return c.JSON(http.StatusOK, pagination.Page(out, pg))
}
