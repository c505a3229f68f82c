package roster

import (
	"github.com/google/uuid"

	"github.com/Fleur41/HealthSense/internal/domain/patient"
	"github.com/Fleur41/HealthSense/internal/domain/visit"
	"github.com/Fleur41/HealthSense/pkg/caldate"
)

// PatientWithStatus is a patient joined with their latest reading. Status, BMI
// and LastVisitDate are nil for a patient without vitals.
type PatientWithStatus struct {
	Patient       *patient.Patient `json:"patient"`
	BMIStatus     *visit.BMIStatus `json:"bmi_status"`
	BMI           *float64         `json:"bmi"`
	LastVisitDate *caldate.Date    `json:"last_visit_date"`
}

func newPatientWithStatus(p *patient.Patient, latest *visit.Vitals) PatientWithStatus {
	out := PatientWithStatus{Patient: p}
	if latest != nil {
		status := latest.Status()
		bmi := latest.BMI
		date := latest.VisitDate
		out.BMIStatus, out.BMI, out.LastVisitDate = &status, &bmi, &date
	}
	return out
}

type Stats struct {
	Total       int `json:"total"`
	Normal      int `json:"normal"`
	Overweight  int `json:"overweight"`
	Underweight int `json:"underweight"`
}

// Summarize counts patients by status; patients without vitals only add to Total.
func Summarize(list []PatientWithStatus) Stats {
	s := Stats{Total: len(list)}
	for _, p := range list {
		if p.BMIStatus == nil {
			continue
		}
		switch *p.BMIStatus {
		case visit.StatusNormal:
			s.Normal++
		case visit.StatusOverweight:
			s.Overweight++
		case visit.StatusUnderweight:
			s.Underweight++
		}
	}
	return s
}

// FilterByVisitDate keeps the patients whose latest visit was on date.
func FilterByVisitDate(list []PatientWithStatus, date caldate.Date) []PatientWithStatus {
	out := []PatientWithStatus{}
	for _, p := range list {
		if p.LastVisitDate != nil && p.LastVisitDate.Equal(date) {
			out = append(out, p)
		}
	}
	return out
}

// VisitSummary is one row of the visits-by-date view.
type VisitSummary struct {
	PatientID uuid.UUID       `json:"patient_id"`
	Name      string          `json:"name"`
	Age       int             `json:"age"`
	BMI       float64         `json:"bmi"`
	Status    visit.BMIStatus `json:"status"`
}
