package visit

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Fleur41/HealthSense/internal/apperr"
	"github.com/Fleur41/HealthSense/internal/platform/auth"
	"github.com/Fleur41/HealthSense/pkg/caldate"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/bmi", h.CalculateBMI)
	api.GET("/patients/:id/vitals", h.ListVitals)
	api.GET("/patients/:id/vitals/latest", h.GetLatestVitals)
	api.GET("/patients/:id/assessments", h.GetAssessments)

	write := api.Group("", auth.RequireRole(auth.RoleClinician))
	write.POST("/patients/:id/vitals", h.SaveVitals)
	write.POST("/patients/:id/assessments/general", h.SaveGeneralAssessment)
	write.POST("/patients/:id/assessments/overweight", h.SaveOverweightAssessment)
	write.POST("/patients/:id/visits", h.RecordVisit)
}

type vitalsRequest struct {
	ID        uuid.UUID    `json:"id"`
	VisitDate caldate.Date `json:"visit_date"`
	HeightCm  float64      `json:"height_cm"`
	WeightKg  float64      `json:"weight_kg"`
	BMI       float64      `json:"bmi"`
}

type questionnaire struct {
	ID            uuid.UUID    `json:"id"`
	VisitDate     caldate.Date `json:"visit_date"`
	GeneralHealth string       `json:"general_health"`
	HasBeenOnDiet bool         `json:"has_been_on_diet"`
	IsTakingDrugs bool         `json:"is_taking_drugs"`
	Comments      string       `json:"comments"`
}

type visitRequest struct {
	vitalsRequest
	General    *questionnaire `json:"general_assessment"`
	Overweight *questionnaire `json:"overweight_assessment"`
}

func (q *questionnaire) general(patientID uuid.UUID) (*GeneralAssessment, error) {
	health, err := ParseGeneralHealth(q.GeneralHealth)
	if err != nil {
		return nil, err
	}
	return &GeneralAssessment{
		ID: q.ID, PatientID: patientID, VisitDate: q.VisitDate,
		GeneralHealth: health, HasBeenOnDiet: q.HasBeenOnDiet, Comments: q.Comments,
	}, nil
}

func (q *questionnaire) overweight(patientID uuid.UUID) (*OverweightAssessment, error) {
	health, err := ParseGeneralHealth(q.GeneralHealth)
	if err != nil {
		return nil, err
	}
	return &OverweightAssessment{
		ID: q.ID, PatientID: patientID, VisitDate: q.VisitDate,
		GeneralHealth: health, IsTakingDrugs: q.IsTakingDrugs, Comments: q.Comments,
	}, nil
}

// VitalsResponse adds the derived BMI status to a reading.
type VitalsResponse struct {
	*Vitals
	Status BMIStatus `json:"status"`
}

func newVitalsResponse(v *Vitals) VitalsResponse {
	return VitalsResponse{Vitals: v, Status: v.Status()}
}

func patientID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	return id, nil
}

func visitDate(c echo.Context, required bool) (caldate.Date, error) {
	raw := c.QueryParam("visit_date")
	if raw == "" {
		if required {
			return caldate.Date{}, echo.NewHTTPError(http.StatusBadRequest, "visit_date is required")
		}
		return caldate.Date{}, nil
	}
	d, err := caldate.Parse(raw)
	if err != nil {
		return caldate.Date{}, echo.NewHTTPError(http.StatusBadRequest, "visit_date must be YYYY-MM-DD")
	}
	return d, nil
}

func (h *Handler) SaveVitals(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	var req vitalsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	v := &Vitals{
		ID: req.ID, PatientID: pid, VisitDate: req.VisitDate,
		HeightCm: req.HeightCm, WeightKg: req.WeightKg, BMI: req.BMI,
	}
	out, err := h.svc.SaveVitals(c.Request().Context(), v)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) ListVitals(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	date, err := visitDate(c, false)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if !date.IsZero() {
		v, err := h.svc.GetVitalsForDate(ctx, pid, date)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(http.StatusOK, newVitalsResponse(v))
	}

	history, err := h.svc.GetVitalsHistory(ctx, pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	out := make([]VitalsResponse, len(history))
	for i, v := range history {
		out[i] = newVitalsResponse(v)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetLatestVitals(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.GetLatestVitals(c.Request().Context(), pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if v == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no vitals recorded for this patient")
	}
	return c.JSON(http.StatusOK, newVitalsResponse(v))
}

func (h *Handler) SaveGeneralAssessment(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	var q questionnaire
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := q.general(pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if err := h.svc.SaveGeneralAssessment(c.Request().Context(), a); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) SaveOverweightAssessment(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	var q questionnaire
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := q.overweight(pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if err := h.svc.SaveOverweightAssessment(c.Request().Context(), a); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAssessments(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	date, err := visitDate(c, true)
	if err != nil {
		return err
	}
	out, err := h.svc.GetAssessmentsForDate(c.Request().Context(), pid, date)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) RecordVisit(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	var req visitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	in := VisitInput{Vitals: Vitals{
		ID: req.ID, PatientID: pid, VisitDate: req.VisitDate,
		HeightCm: req.HeightCm, WeightKg: req.WeightKg, BMI: req.BMI,
	}}
	if req.General != nil {
		if in.General, err = req.General.general(pid); err != nil {
			return apperr.HTTPError(err)
		}
	}
	if req.Overweight != nil {
		if in.Overweight, err = req.Overweight.overweight(pid); err != nil {
			return apperr.HTTPError(err)
		}
	}

	rec, err := h.svc.RecordVisit(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// CalculateBMI is a stateless preview of what a reading would be classified as.
func (h *Handler) CalculateBMI(c echo.Context) error {
	height, err := strconv.ParseFloat(c.QueryParam("height_cm"), 64)
	if err != nil || height <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "height_cm must be a positive number")
	}
	weight, err := strconv.ParseFloat(c.QueryParam("weight_kg"), 64)
	if err != nil || weight <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "weight_kg must be a positive number")
	}

	bmi := ComputeBMI(height, weight)
	status := ClassifyBMI(bmi)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"bmi":             bmi,
		"status":          status,
		"next_assessment": RouteAssessment(status),
	})
}
