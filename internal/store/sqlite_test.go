package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"eemeter/internal/meter"
	"eemeter/internal/model"
	"eemeter/internal/report"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sum := report.NewSummary("office", []model.FuelType{model.FuelElectricity}, map[model.FuelType]string{model.FuelNaturalGas: "no consumption data"}, meter.Result{
		"gross_savings_electricity": meter.Number(1825),
		"R_squared_pre_electricity": meter.Undefined("observed usage has zero variance"),
	})
	run, err := s.SaveRun(ctx, sum)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if run.ID == "" || run.Summary.RunID != run.ID {
		t.Fatalf("run = %+v", run)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Name != "office" || len(got.Evaluated) != 1 || got.Evaluated[0] != "electricity" {
		t.Fatalf("got = %+v", got)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, run.CreatedAt)
	}
	if f, err := got.Summary.Results.Float("gross_savings_electricity"); err != nil || f != 1825 {
		t.Fatalf("gross savings = %v, %v", f, err)
	}
	if r := got.Summary.Results["R_squared_pre_electricity"]; r.Reason() != "observed usage has zero variance" {
		t.Fatalf("undefined reason lost: %q", r.Reason())
	}
	if got.Summary.Skipped[model.FuelNaturalGas] != "no consumption data" {
		t.Fatalf("skipped = %v", got.Summary.Skipped)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		if _, err := s.SaveRun(ctx, report.NewSummary(name, nil, nil, meter.Result{})); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].Name != "c" || runs[1].Name != "b" {
		t.Fatalf("runs = %+v", runs)
	}
	if len(runs[0].Evaluated) != 0 {
		t.Fatalf("evaluated = %v", runs[0].Evaluated)
	}
}

func TestDeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run, err := s.SaveRun(ctx, report.NewSummary("x", nil, nil, meter.Result{}))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRun(ctx, run.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRun(ctx, run.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRun after delete: %v", err)
	}
	if err := s.DeleteRun(ctx, run.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}
