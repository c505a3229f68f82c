package visit

import (
	"context"

	"github.com/google/uuid"

	"github.com/Fleur41/HealthSense/internal/apperr"
	"github.com/Fleur41/HealthSense/internal/platform/outbox"
	"github.com/Fleur41/HealthSense/pkg/caldate"
)

// TxRunner runs fn in a transaction carried by the context it is given.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	repo   Repository
	tx     TxRunner
	notify *outbox.Notifier
}

func NewService(repo Repository, tx TxRunner, notify *outbox.Notifier) *Service {
	return &Service{repo: repo, tx: tx, notify: notify}
}

// SaveVitals stores a reading, computing its BMI when none was supplied, and
// reports which questionnaire the visit continues with. A reading for an unknown
// patient is rejected without writing anything.
func (s *Service) SaveVitals(ctx context.Context, v *Vitals) (*VitalsOutcome, error) {
	out, err := s.saveVitals(ctx, v)
	if err != nil {
		return nil, err
	}
	s.notify.Notify(ctx, outbox.VitalsRecorded, v.ID.String(), v)
	return out, nil
}

func (s *Service) saveVitals(ctx context.Context, v *Vitals) (*VitalsOutcome, error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.BMI == 0 {
		v.BMI = ComputeBMI(v.HeightCm, v.WeightKg)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.repo.UpsertVitals(ctx, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("Patient with ID %s not found", v.PatientID)
	}

	status := v.Status()
	return &VitalsOutcome{Vitals: v, Status: status, NextAssessment: RouteAssessment(status)}, nil
}

// SaveGeneralAssessment stores a questionnaire for a normal or underweight visit.
// The patient is not looked up first; an unknown patient fails in the store.
func (s *Service) SaveGeneralAssessment(ctx context.Context, a *GeneralAssessment) error {
	if err := s.saveGeneral(ctx, a); err != nil {
		return err
	}
	s.notify.Notify(ctx, outbox.GeneralAssessmentRecorded, a.ID.String(), a)
	return nil
}

func (s *Service) saveGeneral(ctx context.Context, a *GeneralAssessment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := a.Validate(); err != nil {
		return err
	}
	return s.repo.UpsertGeneral(ctx, a)
}

func (s *Service) SaveOverweightAssessment(ctx context.Context, a *OverweightAssessment) error {
	if err := s.saveOverweight(ctx, a); err != nil {
		return err
	}
	s.notify.Notify(ctx, outbox.OverweightAssessmentRecorded, a.ID.String(), a)
	return nil
}

func (s *Service) saveOverweight(ctx context.Context, a *OverweightAssessment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := a.Validate(); err != nil {
		return err
	}
	return s.repo.UpsertOverweight(ctx, a)
}

// RecordVisit saves a reading and its questionnaire atomically. The questionnaire
// must be the one the reading's BMI routes to.
func (s *Service) RecordVisit(ctx context.Context, in VisitInput) (*VisitRecord, error) {
	if (in.General == nil) == (in.Overweight == nil) {
		return nil, apperr.Validation("exactly one of general or overweight assessment is required")
	}

	v := in.Vitals
	if v.BMI == 0 {
		v.BMI = ComputeBMI(v.HeightCm, v.WeightKg)
	}
	want := RouteAssessment(v.Status())
	switch {
	case want == AssessmentGeneral && in.General == nil:
		return nil, apperr.Validation("BMI %.2f calls for a general assessment", v.BMI)
	case want == AssessmentOverweight && in.Overweight == nil:
		return nil, apperr.Validation("BMI %.2f calls for an overweight assessment", v.BMI)
	}

	rec := &VisitRecord{General: in.General, Overweight: in.Overweight}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		out, err := s.saveVitals(ctx, &v)
		if err != nil {
			return err
		}
		rec.VitalsOutcome = *out

		if in.General != nil {
			in.General.PatientID, in.General.VisitDate = v.PatientID, v.VisitDate
			return s.saveGeneral(ctx, in.General)
		}
		in.Overweight.PatientID, in.Overweight.VisitDate = v.PatientID, v.VisitDate
		return s.saveOverweight(ctx, in.Overweight)
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, outbox.VitalsRecorded, v.ID.String(), &v)
	if rec.General != nil {
		s.notify.Notify(ctx, outbox.GeneralAssessmentRecorded, rec.General.ID.String(), rec.General)
	} else {
		s.notify.Notify(ctx, outbox.OverweightAssessmentRecorded, rec.Overweight.ID.String(), rec.Overweight)
	}
	return rec, nil
}

// GetLatestVitals returns the reading with the latest visit date, or nil when the
// patient has none.
func (s *Service) GetLatestVitals(ctx context.Context, patientID uuid.UUID) (*Vitals, error) {
	return s.repo.LatestVitals(ctx, patientID)
}

func (s *Service) GetVitalsHistory(ctx context.Context, patientID uuid.UUID) ([]*Vitals, error) {
	return s.repo.VitalsHistory(ctx, patientID)
}

func (s *Service) GetVitalsForDate(ctx context.Context, patientID uuid.UUID, date caldate.Date) (*Vitals, error) {
	return s.repo.VitalsForDate(ctx, patientID, date)
}

func (s *Service) GetAssessmentsForDate(ctx context.Context, patientID uuid.UUID, date caldate.Date) (*Assessments, error) {
	return s.repo.AssessmentsForDate(ctx, patientID, date)
}

// VitalsOn returns each patient's last reading on date.
func (s *Service) VitalsOn(ctx context.Context, date caldate.Date) ([]*Vitals, error) {
	return s.repo.VitalsOn(ctx, date)
}
