package db

import (
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestNewDBMigratesToLatest verifies that NewDB applies the full embedded
// migration set.
func TestNewDBMigratesToLatest(t *testing.T) {
	db := newTestDB(t)

	fsys, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}

	version, dirty, err := db.MigrateVersion(fsys)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("fresh database is dirty")
	}

	latest, err := GetLatestMigrationVersion(fsys)
	if err != nil {
		t.Fatalf("GetLatestMigrationVersion failed: %v", err)
	}
	if version != latest {
		t.Errorf("version = %d, want latest (%d)", version, latest)
	}

	for _, table := range []string{
		"runs", "cells", "measurements", "connections",
		"handovers", "incidents", "flow_rates", "mobility",
	} {
		var count int
		err := db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s missing after migration", table)
		}
	}
}

// TestPragmasApplied verifies that essential PRAGMAs are set on all databases
func TestPragmasApplied(t *testing.T) {
	db := newTestDB(t)

	// Verify journal_mode is WAL
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	// Verify busy_timeout is 5000
	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("Failed to query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("Expected busy_timeout=5000, got %d", busyTimeout)
	}

	// Verify synchronous is NORMAL (1)
	var synchronous int
	if err := db.QueryRow("PRAGMA synchronous").Scan(&synchronous); err != nil {
		t.Fatalf("Failed to query synchronous: %v", err)
	}
	if synchronous != 1 {
		t.Errorf("Expected synchronous=1 (NORMAL), got %d", synchronous)
	}

	// Verify temp_store is MEMORY (2)
	var tempStore int
	if err := db.QueryRow("PRAGMA temp_store").Scan(&tempStore); err != nil {
		t.Fatalf("Failed to query temp_store: %v", err)
	}
	if tempStore != 2 {
		t.Errorf("Expected temp_store=2 (MEMORY), got %d", tempStore)
	}
}

func TestRunsAndFinishRun(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.NewRunStore("run-a", "synthetic"); err != nil {
		t.Fatalf("NewRunStore failed: %v", err)
	}
	if _, err := db.NewRunStore("run-b", "replay"); err != nil {
		t.Fatalf("NewRunStore failed: %v", err)
	}

	runs, err := db.Runs(10)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	for _, r := range runs {
		if r.FinishedAt != nil {
			t.Errorf("run %s already finished", r.RunID)
		}
		if r.StartedAt.IsZero() {
			t.Errorf("run %s has zero started_at", r.RunID)
		}
	}

	if err := db.FinishRun("run-a", 20.0, 7, 3); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err = db.Runs(10)
	if err != nil {
		t.Fatalf("Runs after finish failed: %v", err)
	}
	var finished *Run
	for i := range runs {
		if runs[i].RunID == "run-a" {
			finished = &runs[i]
		}
	}
	if finished == nil {
		t.Fatal("run-a missing from Runs")
	}
	if finished.FinishedAt == nil {
		t.Fatal("run-a has no finished_at after FinishRun")
	}
	if finished.SimEndTime == nil || *finished.SimEndTime != 20.0 {
		t.Errorf("sim_end_time = %v, want 20.0", finished.SimEndTime)
	}
	if finished.TotalHandovers == nil || *finished.TotalHandovers != 7 {
		t.Errorf("total_handovers = %v, want 7", finished.TotalHandovers)
	}
	if finished.TotalIncidents == nil || *finished.TotalIncidents != 3 {
		t.Errorf("total_incidents = %v, want 3", finished.TotalIncidents)
	}
}

func TestDuplicateRunRejected(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.NewRunStore("run-a", ""); err != nil {
		t.Fatalf("first NewRunStore failed: %v", err)
	}
	if _, err := db.NewRunStore("run-a", ""); err == nil {
		t.Error("duplicate run id accepted, want primary key error")
	}
}
