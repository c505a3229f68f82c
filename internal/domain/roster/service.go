package roster

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Fleur41/HealthSense/internal/domain/patient"
	"github.com/Fleur41/HealthSense/internal/domain/visit"
	"github.com/Fleur41/HealthSense/pkg/caldate"
)

const DefaultFanOut = 8

type PatientSource interface {
	GetAllPatients(ctx context.Context) ([]*patient.Patient, error)
}

type VitalsSource interface {
	GetLatestVitals(ctx context.Context, patientID uuid.UUID) (*visit.Vitals, error)
	VitalsOn(ctx context.Context, date caldate.Date) ([]*visit.Vitals, error)
}

type Service struct {
	patients PatientSource
	vitals   VitalsSource
	fanOut   int
	today    func() caldate.Date
}

func NewService(patients PatientSource, vitals VitalsSource, fanOut int) *Service {
	if fanOut < 1 {
		fanOut = DefaultFanOut
	}
	return &Service{patients: patients, vitals: vitals, fanOut: fanOut, today: caldate.Today}
}

// PatientsWithLatestStatus lists every patient in name order with the status of
// their latest reading. Lookups run concurrently, at most fanOut at a time; the
// first failure cancels the rest and is returned instead of a partial list.
func (s *Service) PatientsWithLatestStatus(ctx context.Context) ([]PatientWithStatus, error) {
	patients, err := s.patients.GetAllPatients(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]PatientWithStatus, len(patients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for i, p := range patients {
		g.Go(func() error {
			latest, err := s.vitals.GetLatestVitals(gctx, p.ID)
			if err != nil {
				return err
			}
			out[i] = newPatientWithStatus(p, latest)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	list, err := s.PatientsWithLatestStatus(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(list), nil
}

// VisitsOn lists every patient with a reading on date, by name. Age is as of
// that date.
func (s *Service) VisitsOn(ctx context.Context, date caldate.Date) ([]VisitSummary, error) {
	readings, err := s.vitals.VitalsOn(ctx, date)
	if err != nil {
		return nil, err
	}
	out := []VisitSummary{}
	if len(readings) == 0 {
		return out, nil
	}

	patients, err := s.patients.GetAllPatients(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*patient.Patient, len(patients))
	for _, p := range patients {
		byID[p.ID] = p
	}

	for _, v := range readings {
		p, ok := byID[v.PatientID]
		if !ok {
			continue
		}
		out = append(out, VisitSummary{
			PatientID: p.ID,
			Name:      p.FullName(),
			Age:       p.AgeAt(date),
			BMI:       v.BMI,
			Status:    v.Status(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].PatientID.String() < out[j].PatientID.String()
	})
	return out, nil
}
