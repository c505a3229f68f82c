package caldate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestParse(t *testing.T) {
	d, err := Parse("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.February || d.Day() != 29 {
		t.Errorf("unexpected date %s", d)
	}
	if d.String() != "2024-02-29" {
		t.Errorf("expected 2024-02-29, got %s", d.String())
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("29/02/2024"); err == nil {
		t.Error("expected error for wrong layout")
	}
}

func TestOf_DropsTimeOfDay(t *testing.T) {
	a := Of(time.Date(2025, 3, 4, 23, 59, 0, 0, time.UTC))
	b := New(2025, time.March, 4)
	if !a.Equal(b) {
		t.Errorf("expected %s to equal %s", a, b)
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	type wrapper struct {
		Visit Date  `json:"visit"`
		Birth *Date `json:"birth,omitempty"`
	}
	in := wrapper{Visit: New(2025, time.January, 7)}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"visit":"2025-01-07"}` {
		t.Errorf("unexpected json %s", b)
	}

	var out wrapper
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Visit.Equal(in.Visit) {
		t.Errorf("expected %s, got %s", in.Visit, out.Visit)
	}
}

func TestJSON_NullAndEmpty(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`null`), &d); err != nil || !d.IsZero() {
		t.Errorf("null: expected zero date, got %s (%v)", d, err)
	}
	if err := json.Unmarshal([]byte(`""`), &d); err != nil || !d.IsZero() {
		t.Errorf("empty: expected zero date, got %s (%v)", d, err)
	}
	if err := json.Unmarshal([]byte(`12`), &d); err == nil {
		t.Error("expected error for numeric date")
	}
	b, _ := json.Marshal(Date{})
	if string(b) != "null" {
		t.Errorf("expected null for zero date, got %s", b)
	}
}

func TestPgDate(t *testing.T) {
	want := New(1990, time.June, 15)
	v, err := want.DateValue()
	if err != nil || !v.Valid {
		t.Fatalf("DateValue: %v valid=%v", err, v.Valid)
	}

	var got Date
	if err := got.ScanDate(v); err != nil {
		t.Fatalf("ScanDate: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}

	if err := got.ScanDate(pgtype.Date{}); err != nil || !got.IsZero() {
		t.Errorf("null scan should give zero date, got %s (%v)", got, err)
	}
	if err := got.ScanDate(pgtype.Date{Valid: true, InfinityModifier: pgtype.Infinity}); err == nil {
		t.Error("expected error scanning infinity")
	}
}

func TestAddDaysAndOrdering(t *testing.T) {
	d := New(2024, time.December, 31)
	next := d.AddDays(1)
	if next.String() != "2025-01-01" {
		t.Errorf("expected 2025-01-01, got %s", next)
	}
	if !d.Before(next) || !next.After(d) {
		t.Error("ordering is wrong")
	}
}
