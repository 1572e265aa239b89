// Package store handles SQLite persistence of gate runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/penpipe/internal/gate"
	"github.com/verte-zerg/penpipe/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a run id is not stored.
var ErrNotFound = errors.New("run not found")

// createdAtLayout is fixed width so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Check scopes stored alongside each verdict.
const (
	ScopeRun    = "run"
	scopeCase   = "case:"
	scopePreset = "preset:"
)

// Store wraps SQLite access for gate runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS gate_runs (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			source TEXT NOT NULL,
			input_hash TEXT NOT NULL,
			baseline_version TEXT NOT NULL,
			threshold_version TEXT NOT NULL,
			overall TEXT NOT NULL,
			stage_gate TEXT NOT NULL,
			final_gate TEXT NOT NULL,
			fast_gate TEXT NOT NULL,
			cases_passed INTEGER NOT NULL,
			case_count INTEGER NOT NULL,
			presets_passed INTEGER NOT NULL,
			preset_count INTEGER NOT NULL,
			artifact_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS gate_checks (
			run_pk INTEGER NOT NULL,
			scope TEXT NOT NULL,
			check_name TEXT NOT NULL,
			verdict TEXT NOT NULL,
			PRIMARY KEY (run_pk, scope, check_name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_gate_runs_created_at ON gate_runs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_gate_checks_name ON gate_checks(check_name);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores an artifact and every semantic check verdict it carries.
// source names the capture the run was made from.
func (s *Store) InsertRun(ctx context.Context, a gate.Artifact, source string) (id int64, err error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return 0, fmt.Errorf("failed to encode artifact: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO gate_runs (run_id, created_at, source, input_hash, baseline_version, threshold_version,
			overall, stage_gate, final_gate, fast_gate, cases_passed, case_count, presets_passed, preset_count, artifact_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunMeta.ID,
		sortableTime(a.RunMeta.Timestamp),
		source,
		a.InputHash,
		a.BaselineVersion,
		a.ThresholdVersion,
		string(a.Overall),
		string(a.StageGate),
		string(a.FinalGate),
		string(a.FastGate),
		a.Summary.CasesPassed,
		a.Summary.CaseCount,
		a.Summary.PresetsPassed,
		a.Summary.PresetCount,
		string(payload),
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO gate_checks (run_pk, scope, check_name, verdict) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	insertChecks := func(scope string, checks map[string]gate.Verdict) error {
		for _, name := range gate.CheckNames() {
			v, ok := checks[name]
			if !ok {
				continue
			}
			if _, err := stmt.ExecContext(ctx, id, scope, name, string(v)); err != nil {
				return err
			}
		}
		return nil
	}
	if err = insertChecks(ScopeRun, a.SemanticChecks); err != nil {
		return 0, err
	}
	for _, r := range a.CaseResults {
		if err = insertChecks(scopeCase+r.Name, r.SemanticChecks); err != nil {
			return 0, err
		}
	}
	for _, r := range a.PresetResults {
		if err = insertChecks(scopePreset+r.Name, r.SemanticChecks); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetArtifact loads the full artifact stored for runID.
func (s *Store) GetArtifact(ctx context.Context, runID string) (gate.Artifact, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT artifact_json FROM gate_runs WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return gate.Artifact{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return gate.Artifact{}, err
	}
	var a gate.Artifact
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return gate.Artifact{}, fmt.Errorf("failed to decode artifact %s: %w", runID, err)
	}
	return a, nil
}

// ListRuns returns run summaries matching filter, oldest first.
func (s *Store) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.RunSummary, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(createdAtLayout))
	}
	query := fmt.Sprintf(`SELECT id, run_id, created_at, source, input_hash, baseline_version, threshold_version,
			overall, stage_gate, final_gate, fast_gate, cases_passed, case_count, presets_passed, preset_count
		FROM gate_runs
		WHERE %s
		ORDER BY created_at DESC, id DESC`, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		var createdAt string
		if err := rows.Scan(&r.ID, &r.RunID, &createdAt, &r.Source, &r.InputHash, &r.BaselineVersion, &r.ThresholdVersion,
			&r.Overall, &r.StageGate, &r.FinalGate, &r.FastGate, &r.CasesPassed, &r.CaseCount, &r.PresetsPassed, &r.PresetCount); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		r.CreatedAt = parsed
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs, nil
}

// CheckFailureCounts aggregates run-level check verdicts over the most recent
// window runs. A non-positive window covers every stored run.
func (s *Store) CheckFailureCounts(ctx context.Context, window int) ([]model.CheckAggregate, error) {
	query := `WITH recent_runs AS (
		SELECT id FROM gate_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	)
	SELECT c.check_name,
		SUM(CASE WHEN c.verdict = 'pass' THEN 0 ELSE 1 END) AS failures,
		COUNT(*) AS total
	FROM gate_checks c
	JOIN recent_runs r ON r.id = c.run_pk
	WHERE c.scope = ?
	GROUP BY c.check_name`
	if window <= 0 {
		window = -1
	}

	rows, err := s.db.QueryContext(ctx, query, window, ScopeRun)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.CheckAggregate
	for rows.Next() {
		var agg model.CheckAggregate
		if err := rows.Scan(&agg.Name, &agg.Failures, &agg.Total); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// sortableTime rewrites an RFC3339 timestamp in createdAtLayout. Unparseable
// values are stored as given.
func sortableTime(ts string) string {
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return parsed.UTC().Format(createdAtLayout)
}
