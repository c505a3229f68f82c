package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fleur41/HealthSense/internal/apperr"
	"github.com/Fleur41/HealthSense/internal/platform/db"
)

const numberConstraint = "patients_patient_number_key"

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, patient_number, registration_date, first_name, last_name, date_of_birth, gender`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (`+patientCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.PatientNumber, p.RegistrationDate, p.FirstName, p.LastName, p.DateOfBirth, string(p.Gender),
	)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, numberConstraint):
		return apperr.DuplicateKey("Patient number %s already exists", p.PatientNumber)
	default:
		// A primary-key collision lands here too: ids are never reused.
		return apperr.Persistence(err, "insert patient %s", p.ID)
	}
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Patient with ID %s not found", id)
	}
	return p, err
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE patient_number = $1`, number))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Patient with number %s not found", number)
	}
	return p, err
}

func (r *repoPG) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE patient_number = $1)`, number,
	).Scan(&exists)
	if err != nil {
		return false, apperr.Persistence(err, "check patient number")
	}
	return exists, nil
}

func (r *repoPG) ListByName(ctx context.Context) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY first_name COLLATE "C", last_name COLLATE "C", id`)
	if err != nil {
		return nil, apperr.Persistence(err, "list patients")
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(err, "list patients")
	}
	return out, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var gender string
	err := row.Scan(&p.ID, &p.PatientNumber, &p.RegistrationDate, &p.FirstName, &p.LastName, &p.DateOfBirth, &gender)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, err
		}
		return nil, apperr.Persistence(err, "scan patient")
	}
	if p.Gender, err = decodeGender(gender); err != nil {
		return nil, err
	}
	return &p, nil
}
