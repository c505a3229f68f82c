package visit

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Fleur41/HealthSense/internal/apperr"
	"github.com/Fleur41/HealthSense/pkg/caldate"
)

type BMIStatus string

const (
	StatusUnderweight BMIStatus = "UNDERWEIGHT"
	StatusNormal      BMIStatus = "NORMAL"
	StatusOverweight  BMIStatus = "OVERWEIGHT"
)

// AssessmentKind names the questionnaire a visit continues with.
type AssessmentKind string

const (
	AssessmentGeneral    AssessmentKind = "general"
	AssessmentOverweight AssessmentKind = "overweight"
)

type GeneralHealth string

const (
	HealthGood GeneralHealth = "GOOD"
	HealthPoor GeneralHealth = "POOR"
)

func ParseGeneralHealth(s string) (GeneralHealth, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(HealthGood):
		return HealthGood, nil
	case string(HealthPoor):
		return HealthPoor, nil
	}
	return "", apperr.Validation("general health must be GOOD or POOR")
}

func decodeGeneralHealth(s string) (GeneralHealth, error) {
	switch GeneralHealth(s) {
	case HealthGood, HealthPoor:
		return GeneralHealth(s), nil
	}
	return "", apperr.Decoding("stored general health %q is not a known value", s)
}

// Vitals is one height/weight reading taken at a visit.
type Vitals struct {
	ID        uuid.UUID    `json:"id"`
	PatientID uuid.UUID    `json:"patient_id"`
	VisitDate caldate.Date `json:"visit_date"`
	HeightCm  float64      `json:"height_cm"`
	WeightKg  float64      `json:"weight_kg"`
	BMI       float64      `json:"bmi"`
}

func (v *Vitals) Status() BMIStatus {
	return ClassifyBMI(v.BMI)
}

func (v *Vitals) Validate() error {
	switch {
	case v.PatientID == uuid.Nil:
		return apperr.Validation("patient id is required")
	case v.VisitDate.IsZero():
		return apperr.Validation("visit date is required")
	case v.HeightCm < 50 || v.HeightCm > 250:
		return apperr.Validation("height must be between 50 and 250 cm")
	case v.WeightKg < 2 || v.WeightKg > 300:
		return apperr.Validation("weight must be between 2 and 300 kg")
	case v.BMI < 0:
		return apperr.Validation("bmi cannot be negative")
	}
	return nil
}

type GeneralAssessment struct {
	ID            uuid.UUID     `json:"id"`
	PatientID     uuid.UUID     `json:"patient_id"`
	VisitDate     caldate.Date  `json:"visit_date"`
	GeneralHealth GeneralHealth `json:"general_health"`
	HasBeenOnDiet bool          `json:"has_been_on_diet"`
	Comments      string        `json:"comments"`
}

type OverweightAssessment struct {
	ID            uuid.UUID     `json:"id"`
	PatientID     uuid.UUID     `json:"patient_id"`
	VisitDate     caldate.Date  `json:"visit_date"`
	GeneralHealth GeneralHealth `json:"general_health"`
	IsTakingDrugs bool          `json:"is_taking_drugs"`
	Comments      string        `json:"comments"`
}

func validateAssessment(patientID uuid.UUID, date caldate.Date, health GeneralHealth) error {
	switch {
	case patientID == uuid.Nil:
		return apperr.Validation("patient id is required")
	case date.IsZero():
		return apperr.Validation("visit date is required")
	case health != HealthGood && health != HealthPoor:
		return apperr.Validation("general health must be GOOD or POOR")
	}
	return nil
}

func (a *GeneralAssessment) Validate() error {
	return validateAssessment(a.PatientID, a.VisitDate, a.GeneralHealth)
}

func (a *OverweightAssessment) Validate() error {
	return validateAssessment(a.PatientID, a.VisitDate, a.GeneralHealth)
}

// Assessments groups the questionnaires recorded for one patient on one date.
type Assessments struct {
	General    []*GeneralAssessment    `json:"general"`
	Overweight []*OverweightAssessment `json:"overweight"`
}

// VitalsOutcome is what a saved reading means for the rest of the visit.
type VitalsOutcome struct {
	Vitals         *Vitals        `json:"vitals"`
	Status         BMIStatus      `json:"status"`
	NextAssessment AssessmentKind `json:"next_assessment"`
}

// VisitInput is a complete visit: the reading plus the questionnaire its BMI
// branch calls for. Exactly one of General and Overweight must be set; their
// patient and date are taken from Vitals.
type VisitInput struct {
	Vitals     Vitals
	General    *GeneralAssessment
	Overweight *OverweightAssessment
}

type VisitRecord struct {
	VitalsOutcome
	General    *GeneralAssessment    `json:"general_assessment,omitempty"`
	Overweight *OverweightAssessment `json:"overweight_assessment,omitempty"`
}
