package visit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fleur41/HealthSense/internal/apperr"
	"github.com/Fleur41/HealthSense/internal/platform/db"
	"github.com/Fleur41/HealthSense/pkg/caldate"
)

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

const vitalsCols = `id, patient_id, visit_date, height_cm, weight_kg, bmi`

// newest reading first; recorded_at breaks ties between readings of one day.
const newestFirst = `ORDER BY visit_date DESC, recorded_at DESC, id`

func (r *repoPG) UpsertVitals(ctx context.Context, v *Vitals) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_vitals (`+vitalsCols+`)
		SELECT $1::uuid, $2::uuid, $3::date, $4::float8, $5::float8, $6::float8
		WHERE EXISTS (SELECT 1 FROM patients WHERE id = $2::uuid)
		ON CONFLICT (id) DO UPDATE SET
			patient_id  = EXCLUDED.patient_id,
			visit_date  = EXCLUDED.visit_date,
			height_cm   = EXCLUDED.height_cm,
			weight_kg   = EXCLUDED.weight_kg,
			bmi         = EXCLUDED.bmi,
			recorded_at = NOW()`,
		v.ID, v.PatientID, v.VisitDate, v.HeightCm, v.WeightKg, v.BMI,
	)
	switch {
	case err == nil:
		return tag.RowsAffected() > 0, nil
	case db.IsForeignKeyViolation(err):
		// patient removed between the existence check and the write
		return false, nil
	default:
		return false, apperr.Persistence(err, "save vitals %s", v.ID)
	}
}

func (r *repoPG) UpsertGeneral(ctx context.Context, a *GeneralAssessment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO general_assessments (id, patient_id, visit_date, general_health, has_been_on_diet, comments)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			patient_id       = EXCLUDED.patient_id,
			visit_date       = EXCLUDED.visit_date,
			general_health   = EXCLUDED.general_health,
			has_been_on_diet = EXCLUDED.has_been_on_diet,
			comments         = EXCLUDED.comments,
			recorded_at      = NOW()`,
		a.ID, a.PatientID, a.VisitDate, string(a.GeneralHealth), a.HasBeenOnDiet, a.Comments,
	)
	return apperr.Persistence(err, "save general assessment %s", a.ID)
}

func (r *repoPG) UpsertOverweight(ctx context.Context, a *OverweightAssessment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO overweight_assessments (id, patient_id, visit_date, general_health, is_taking_drugs, comments)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			patient_id      = EXCLUDED.patient_id,
			visit_date      = EXCLUDED.visit_date,
			general_health  = EXCLUDED.general_health,
			is_taking_drugs = EXCLUDED.is_taking_drugs,
			comments        = EXCLUDED.comments,
			recorded_at     = NOW()`,
		a.ID, a.PatientID, a.VisitDate, string(a.GeneralHealth), a.IsTakingDrugs, a.Comments,
	)
	return apperr.Persistence(err, "save overweight assessment %s", a.ID)
}

func (r *repoPG) LatestVitals(ctx context.Context, patientID uuid.UUID) (*Vitals, error) {
	v, err := scanVitals(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vitalsCols+` FROM patient_vitals WHERE patient_id = $1 `+newestFirst+` LIMIT 1`, patientID))
	if db.IsNoRows(err) {
		return nil, nil
	}
	return v, err
}

func (r *repoPG) VitalsHistory(ctx context.Context, patientID uuid.UUID) ([]*Vitals, error) {
	return r.queryVitals(ctx, "vitals history",
		`SELECT `+vitalsCols+` FROM patient_vitals WHERE patient_id = $1 `+newestFirst, patientID)
}

func (r *repoPG) VitalsForDate(ctx context.Context, patientID uuid.UUID, date caldate.Date) (*Vitals, error) {
	v, err := scanVitals(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vitalsCols+` FROM patient_vitals WHERE patient_id = $1 AND visit_date = $2 `+newestFirst+` LIMIT 1`,
		patientID, date))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("No vitals for patient %s on %s", patientID, date)
	}
	return v, err
}

func (r *repoPG) VitalsOn(ctx context.Context, date caldate.Date) ([]*Vitals, error) {
	return r.queryVitals(ctx, "vitals by date", `
		SELECT DISTINCT ON (patient_id) `+vitalsCols+`
		FROM patient_vitals
		WHERE visit_date = $1
		ORDER BY patient_id, recorded_at DESC, id`, date)
}

func (r *repoPG) AssessmentsForDate(ctx context.Context, patientID uuid.UUID, date caldate.Date) (*Assessments, error) {
	out := &Assessments{General: []*GeneralAssessment{}, Overweight: []*OverweightAssessment{}}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, visit_date, general_health, has_been_on_diet, comments
		FROM general_assessments WHERE patient_id = $1 AND visit_date = $2
		ORDER BY recorded_at DESC, id`, patientID, date)
	if err != nil {
		return nil, apperr.Persistence(err, "list general assessments")
	}
	for rows.Next() {
		var a GeneralAssessment
		var health string
		if err := rows.Scan(&a.ID, &a.PatientID, &a.VisitDate, &health, &a.HasBeenOnDiet, &a.Comments); err != nil {
			rows.Close()
			return nil, apperr.Persistence(err, "scan general assessment")
		}
		if a.GeneralHealth, err = decodeGeneralHealth(health); err != nil {
			rows.Close()
			return nil, err
		}
		out.General = append(out.General, &a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(err, "list general assessments")
	}

	rows, err = r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, visit_date, general_health, is_taking_drugs, comments
		FROM overweight_assessments WHERE patient_id = $1 AND visit_date = $2
		ORDER BY recorded_at DESC, id`, patientID, date)
	if err != nil {
		return nil, apperr.Persistence(err, "list overweight assessments")
	}
	defer rows.Close()
	for rows.Next() {
		var a OverweightAssessment
		var health string
		if err := rows.Scan(&a.ID, &a.PatientID, &a.VisitDate, &health, &a.IsTakingDrugs, &a.Comments); err != nil {
			return nil, apperr.Persistence(err, "scan overweight assessment")
		}
		if a.GeneralHealth, err = decodeGeneralHealth(health); err != nil {
			return nil, err
		}
		out.Overweight = append(out.Overweight, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(err, "list overweight assessments")
	}
	return out, nil
}

func (r *repoPG) queryVitals(ctx context.Context, what, sql string, args ...interface{}) ([]*Vitals, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Persistence(err, "%s", what)
	}
	defer rows.Close()

	out := []*Vitals{}
	for rows.Next() {
		v, err := scanVitals(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(err, "%s", what)
	}
	return out, nil
}

func scanVitals(row pgx.Row) (*Vitals, error) {
	var v Vitals
	err := row.Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.HeightCm, &v.WeightKg, &v.BMI)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, err
		}
		return nil, apperr.Persistence(err, "scan vitals")
	}
	return &v, nil
}
