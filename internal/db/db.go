// Package db persists analyzer records to sqlite, one row set per run, and
// exposes the admin/debug surface (tailsql, backups) over the monitor mux.
package db

import (
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

type DB struct {
	*sql.DB
}

// OpenDB opens the sqlite database at path with the standard pragmas
// applied to every pooled connection. It does not touch the schema; use
// NewDB when the database should be migrated to the latest version.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// NewDB opens the database at path and applies all pending migrations from
// the embedded set.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	fsys, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	if err := db.MigrateUp(fsys); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// dsn appends the pragma set used for every connection: WAL journaling so
// the monitor can read while the run writes, a 5s busy timeout, NORMAL
// sync, and in-memory temp tables.
func dsn(path string) string {
	return "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=temp_store(MEMORY)"
}

// Run is one row of the runs table. Finish fields are nil until FinishRun
// stamps them.
type Run struct {
	RunID          string     `json:"run_id"`
	Label          string     `json:"label"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	SimEndTime     *float64   `json:"sim_end_time,omitempty"`
	TotalHandovers *int64     `json:"total_handovers,omitempty"`
	TotalIncidents *int64     `json:"total_incidents,omitempty"`
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`SELECT run_id, label, started_at, finished_at,
			sim_end_time, total_handovers, total_incidents
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var label sql.NullString
		if err := rows.Scan(&r.RunID, &label, &r.StartedAt, &r.FinishedAt,
			&r.SimEndTime, &r.TotalHandovers, &r.TotalIncidents); err != nil {
			return nil, err
		}
		r.Label = label.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// FinishRun stamps the run row with the wall-clock finish time, the final
// simulated time, and the headline counters.
func (db *DB) FinishRun(runID string, simEndTime float64, totalHandovers, totalIncidents int64) error {
	_, err := db.Exec(`UPDATE runs
		SET finished_at = CURRENT_TIMESTAMP, sim_end_time = ?,
			total_handovers = ?, total_incidents = ?
		WHERE run_id = ?`,
		simEndTime, totalHandovers, totalIncidents, runID)
	return err
}

// RunSummary returns row counts per record table for one run.
func (db *DB) RunSummary(runID string) (map[string]int64, error) {
	summary := make(map[string]int64, 7)
	for _, table := range []string{
		"cells", "measurements", "connections", "handovers",
		"incidents", "flow_rates", "mobility",
	} {
		var count int64
		// Table names come from the fixed list above, never from input.
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE run_id = ?", table)
		if err := db.QueryRow(q, runID).Scan(&count); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		summary[table] = count
	}
	return summary, nil
}

// AttachAdminRoutes mounts the tailsql live-query console, a per-run row
// count summary, and a backup endpoint under /debug/ on the given mux.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.Handle("db-stats", "Row counts per table for recent runs", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runs, err := db.Runs(5)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to list runs: %v", err), http.StatusInternalServerError)
			return
		}
		type runStats struct {
			Run    Run              `json:"run"`
			Tables map[string]int64 `json:"tables"`
		}
		out := make([]runStats, 0, len(runs))
		for _, run := range runs {
			tables, err := db.RunSummary(run.RunID)
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to summarize run %s: %v", run.RunID, err), http.StatusInternalServerError)
				return
			}
			out = append(out, runStats{Run: run, Tables: tables})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			log.Printf("Failed to encode db stats: %v", err)
		}
	}))

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://ranwatch.db", db.DB, &tailsql.DBOptions{
		Label: "RAN store",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
