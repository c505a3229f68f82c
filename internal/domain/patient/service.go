package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Fleur41/HealthSense/internal/apperr"
	"github.com/Fleur41/HealthSense/internal/platform/outbox"
	"github.com/Fleur41/HealthSense/pkg/caldate"
)

type Service struct {
	repo   Repository
	notify *outbox.Notifier
	today  func() caldate.Date
}

func NewService(repo Repository, notify *outbox.Notifier) *Service {
	return &Service{repo: repo, notify: notify, today: caldate.Today}
}

// RegisterPatient validates and stores p, assigning an id when it has none and
// defaulting the registration date to today. Uniqueness of the patient number is
// enforced by the store, so concurrent registrations cannot both succeed.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) (uuid.UUID, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.RegistrationDate.IsZero() {
		p.RegistrationDate = s.today()
	}
	p.normalize()
	if err := p.Validate(); err != nil {
		return uuid.Nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return uuid.Nil, err
	}

	s.notify.Notify(ctx, outbox.PatientRegistered, p.ID.String(), p)
	return p.ID, nil
}

// CheckPatientNumberExists is advisory: the answer can be stale by the time a
// registration is attempted.
func (s *Service) CheckPatientNumberExists(ctx context.Context, number string) (bool, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return false, apperr.Validation("patient number is required")
	}
	return s.repo.ExistsByNumber(ctx, number)
}

func (s *Service) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetPatientByNumber(ctx context.Context, number string) (*Patient, error) {
	return s.repo.GetByNumber(ctx, strings.TrimSpace(number))
}

// GetAllPatients lists every patient ordered by first name, then last name.
func (s *Service) GetAllPatients(ctx context.Context) ([]*Patient, error) {
	return s.repo.ListByName(ctx)
}

// Today is the date ages are computed against.
func (s *Service) Today() caldate.Date {
	return s.today()
}
