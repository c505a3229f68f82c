package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fleur41/HealthSense/internal/domain/patient"
	"github.com/Fleur41/HealthSense/internal/platform/db"
	"github.com/Fleur41/HealthSense/migrations"
	"github.com/Fleur41/HealthSense/pkg/caldate"
)

// testPool is the migrated database shared by every test, set up once in TestMain.
var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, cleanup, err := setupDatabase(ctx)
	if err != nil {
		// Without a database there is nothing to integrate against.
		fmt.Fprintf(os.Stderr, "skipping integration tests: %v\n", err)
		os.Exit(0)
	}

	testPool = pool
	code := m.Run()
	cleanup()
	os.Exit(code)
}

// setupDatabase connects to HEALTHSENSE_TEST_DATABASE_URL when set and starts a
// throwaway container otherwise, then applies the embedded migrations.
func setupDatabase(ctx context.Context) (*pgxpool.Pool, func(), error) {
	connStr := os.Getenv("HEALTHSENSE_TEST_DATABASE_URL")
	stop := func() {}
	if connStr == "" {
		var err error
		connStr, stop, err = startPostgresContainer(ctx)
		if err != nil {
			return nil, nil, err
		}
	}

	pool, err := db.NewPool(ctx, connStr, db.PoolOptions{MaxConns: 10})
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if _, err := db.NewMigrator(pool, migrations.FS).Up(migrateCtx); err != nil {
		pool.Close()
		stop()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return pool, func() {
		pool.Close()
		stop()
	}, nil
}

// resetTables empties every domain table so each test starts from a blank store.
func resetTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`TRUNCATE overweight_assessments, general_assessments, patient_vitals, patients`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func day(y int, m time.Month, d int) caldate.Date {
	return caldate.New(y, m, d)
}

// createTestPatient inserts a patient through the repository.
func createTestPatient(t *testing.T, number, first, last string) *patient.Patient {
	t.Helper()
	p := &patient.Patient{
		ID:               uuid.New(),
		PatientNumber:    number,
		RegistrationDate: day(2025, time.March, 3),
		FirstName:        first,
		LastName:         last,
		DateOfBirth:      day(1990, time.June, 15),
		Gender:           patient.GenderFemale,
	}
	if err := patient.NewRepo(testPool).Create(context.Background(), p); err != nil {
		t.Fatalf("create test patient %s: %v", number, err)
	}
	return p
}
