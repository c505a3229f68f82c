package visit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Fleur41/HealthSense/pkg/caldate"
)

// Repository persists readings and questionnaires. Errors are apperr kinds.
type Repository interface {
	// UpsertVitals inserts or replaces v by id in a single statement that only
	// writes when the owning patient exists. It reports false when it does not.
	UpsertVitals(ctx context.Context, v *Vitals) (bool, error)
	UpsertGeneral(ctx context.Context, a *GeneralAssessment) error
	UpsertOverweight(ctx context.Context, a *OverweightAssessment) error

	// LatestVitals returns nil, nil when the patient has no readings.
	LatestVitals(ctx context.Context, patientID uuid.UUID) (*Vitals, error)
	// VitalsHistory is newest visit first.
	VitalsHistory(ctx context.Context, patientID uuid.UUID) ([]*Vitals, error)
	VitalsForDate(ctx context.Context, patientID uuid.UUID, date caldate.Date) (*Vitals, error)
	AssessmentsForDate(ctx context.Context, patientID uuid.UUID, date caldate.Date) (*Assessments, error)
	// VitalsOn returns the last reading of each patient seen on date.
	VitalsOn(ctx context.Context, date caldate.Date) ([]*Vitals, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
