package remote

import (
	"github.com/Fleur41/HealthSense/internal/domain/patient"
	"github.com/Fleur41/HealthSense/internal/domain/visit"
)

type PatientRequest struct {
	PatientNumber    string `json:"patient_number"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	DateOfBirth      string `json:"date_of_birth"`
	Gender           string `json:"gender"`
	RegistrationDate string `json:"registration_date"`
}

type VitalsRequest struct {
	PatientID string  `json:"patient_id"`
	VisitDate string  `json:"visit_date"`
	Height    float64 `json:"height"`
	Weight    float64 `json:"weight"`
	BMI       float64 `json:"bmi"`
}

type GeneralVisitRequest struct {
	PatientID     string `json:"patient_id"`
	VisitDate     string `json:"visit_date"`
	GeneralHealth string `json:"general_health"`
	OnDiet        string `json:"on_diet"`
	Comments      string `json:"comments"`
}

type OverweightVisitRequest struct {
	PatientID     string `json:"patient_id"`
	VisitDate     string `json:"visit_date"`
	GeneralHealth string `json:"general_health"`
	OnDrugs       string `json:"on_drugs"`
	Comments      string `json:"comments"`
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func NewPatientRequest(p *patient.Patient) PatientRequest {
	return PatientRequest{
		PatientNumber:    p.PatientNumber,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		DateOfBirth:      p.DateOfBirth.String(),
		Gender:           string(p.Gender),
		RegistrationDate: p.RegistrationDate.String(),
	}
}

func NewVitalsRequest(v *visit.Vitals) VitalsRequest {
	return VitalsRequest{
		PatientID: v.PatientID.String(),
		VisitDate: v.VisitDate.String(),
		Height:    v.HeightCm,
		Weight:    v.WeightKg,
		BMI:       v.BMI,
	}
}

func NewGeneralVisitRequest(a *visit.GeneralAssessment) GeneralVisitRequest {
	return GeneralVisitRequest{
		PatientID:     a.PatientID.String(),
		VisitDate:     a.VisitDate.String(),
		GeneralHealth: string(a.GeneralHealth),
		OnDiet:        yesNo(a.HasBeenOnDiet),
		Comments:      a.Comments,
	}
}

func NewOverweightVisitRequest(a *visit.OverweightAssessment) OverweightVisitRequest {
	return OverweightVisitRequest{
		PatientID:     a.PatientID.String(),
		VisitDate:     a.VisitDate.String(),
		GeneralHealth: string(a.GeneralHealth),
		OnDrugs:       yesNo(a.IsTakingDrugs),
		Comments:      a.Comments,
	}
}
