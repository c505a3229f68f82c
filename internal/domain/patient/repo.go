package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository errors are apperr kinds: DuplicateKey for a taken patient number,
// NotFound for missing rows, Persistence for everything else.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByNumber(ctx context.Context, number string) (*Patient, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	// ListByName returns every patient ordered by first name, then last name.
	ListByName(ctx context.Context) ([]*Patient, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
