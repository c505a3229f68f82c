package patient

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Fleur41/HealthSense/internal/apperr"
	"github.com/Fleur41/HealthSense/internal/platform/outbox"
	"github.com/Fleur41/HealthSense/pkg/caldate"
)

// mockRepo enforces the same constraints as the patients table.
type mockRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*Patient
	failWith error
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, existing := range m.patients {
		if existing.PatientNumber == p.PatientNumber {
			return apperr.DuplicateKey("Patient number %s already exists", p.PatientNumber)
		}
	}
	if _, ok := m.patients[p.ID]; ok {
		return apperr.Persistence(errors.New("duplicate key value violates unique constraint \"patients_pkey\""), "insert patient %s", p.ID)
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("Patient with ID %s not found", id)
	}
	return p, nil
}

func (m *mockRepo) GetByNumber(_ context.Context, number string) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.PatientNumber == number {
			return p, nil
		}
	}
	return nil, apperr.NotFound("Patient with number %s not found", number)
}

func (m *mockRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	_, err := m.GetByNumber(ctx, number)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *mockRepo) ListByName(_ context.Context) ([]*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Patient, 0, len(m.patients))
	for _, p := range m.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].LastName < out[j].LastName
	})
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []outbox.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func newTestService() (*Service, *mockRepo, *recordingPublisher) {
	repo := newMockRepo()
	pub := &recordingPublisher{}
	svc := NewService(repo, outbox.NewNotifier(pub, time.Second, zerolog.Nop()))
	svc.today = func() caldate.Date { return caldate.New(2025, time.March, 3) }
	return svc, repo, pub
}

func TestRegisterPatient_AssignsIDAndPublishes(t *testing.T) {
	svc, repo, pub := newTestService()
	p := validPatient()

	id, err := svc.RegisterPatient(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == uuid.Nil || id != p.ID {
		t.Errorf("expected generated id to be returned and set, got %s / %s", id, p.ID)
	}
	if _, ok := repo.patients[id]; !ok {
		t.Error("expected patient to be stored")
	}
	if len(pub.events) != 1 || pub.events[0].Type != outbox.PatientRegistered || pub.events[0].AggregateID != id.String() {
		t.Errorf("unexpected events %+v", pub.events)
	}
}

func TestRegisterPatient_KeepsSuppliedIDAndDefaultsDate(t *testing.T) {
	svc, _, _ := newTestService()
	p := validPatient()
	p.ID = uuid.MustParse("11111111-2222-3333-4444-555555555555")
	p.RegistrationDate = caldate.Date{}
	p.FirstName = "  Amina "

	id, err := svc.RegisterPatient(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != p.ID {
		t.Errorf("expected supplied id, got %s", id)
	}
	if !p.RegistrationDate.Equal(caldate.New(2025, time.March, 3)) {
		t.Errorf("expected registration date to default to today, got %s", p.RegistrationDate)
	}
	if p.FirstName != "Amina" {
		t.Errorf("expected trimmed first name, got %q", p.FirstName)
	}
}

func TestRegisterPatient_DuplicateNumber(t *testing.T) {
	svc, repo, pub := newTestService()
	if _, err := svc.RegisterPatient(context.Background(), validPatient()); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	_, err := svc.RegisterPatient(context.Background(), validPatient())
	if !errors.Is(err, apperr.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	if len(repo.patients) != 1 {
		t.Errorf("expected one stored patient, got %d", len(repo.patients))
	}
	if len(pub.events) != 1 {
		t.Errorf("expected no event for the rejected registration, got %d", len(pub.events))
	}
}

func TestRegisterPatient_DuplicateIDIsPersistenceError(t *testing.T) {
	svc, _, _ := newTestService()
	first := validPatient()
	if _, err := svc.RegisterPatient(context.Background(), first); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	second := validPatient()
	second.ID = first.ID
	second.PatientNumber = "P200"
	_, err := svc.RegisterPatient(context.Background(), second)
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestRegisterPatient_ValidationStopsWrite(t *testing.T) {
	svc, repo, _ := newTestService()
	p := validPatient()
	p.PatientNumber = "P1"

	if _, err := svc.RegisterPatient(context.Background(), p); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.patients) != 0 {
		t.Error("nothing should be stored")
	}
}

func TestCheckPatientNumberExists(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	exists, err := svc.CheckPatientNumberExists(ctx, "P100")
	if err != nil || exists {
		t.Fatalf("expected false before registration, got %v (%v)", exists, err)
	}

	p := validPatient()
	if _, err := svc.RegisterPatient(ctx, p); err != nil {
		t.Fatalf("register: %v", err)
	}
	exists, err = svc.CheckPatientNumberExists(ctx, "P100")
	if err != nil || !exists {
		t.Errorf("expected true after registration, got %v (%v)", exists, err)
	}

	if _, err := svc.CheckPatientNumberExists(ctx, "  "); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for blank number, got %v", err)
	}
}

func TestGetPatient(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p := validPatient()
	id, _ := svc.RegisterPatient(ctx, p)

	got, err := svc.GetPatientByID(ctx, id)
	if err != nil || got.PatientNumber != "P100" {
		t.Errorf("GetPatientByID: %+v (%v)", got, err)
	}
	got, err = svc.GetPatientByNumber(ctx, " P100 ")
	if err != nil || got.ID != id {
		t.Errorf("GetPatientByNumber: %+v (%v)", got, err)
	}

	_, err = svc.GetPatientByID(ctx, uuid.New())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	_, err = svc.GetPatientByNumber(ctx, "P999")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGetAllPatients_OrderedByName(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	for i, name := range [][2]string{{"Zawadi", "Kamau"}, {"Amina", "Wanjiru"}, {"Amina", "Otieno"}} {
		p := validPatient()
		p.PatientNumber = "P10" + string(rune('0'+i))
		p.FirstName, p.LastName = name[0], name[1]
		if _, err := svc.RegisterPatient(ctx, p); err != nil {
			t.Fatalf("register %v: %v", name, err)
		}
	}

	all, err := svc.GetAllPatients(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	for _, p := range all {
		got = append(got, p.FullName())
	}
	want := []string{"Amina Otieno", "Amina Wanjiru", "Zawadi Kamau"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRegisterPatient_ConcurrentSameNumber(t *testing.T) {
	svc, repo, _ := newTestService()
	var wg sync.WaitGroup
	var mu sync.Mutex
	dupes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RegisterPatient(context.Background(), validPatient())
			if errors.Is(err, apperr.ErrDuplicateKey) {
				mu.Lock()
				dupes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(repo.patients) != 1 || dupes != 7 {
		t.Errorf("expected exactly one winner, got %d stored and %d duplicates", len(repo.patients), dupes)
	}
}
