package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

// Row is a generic result row from Query, keyed by column name — the Go
// analogue of sqlite3.Row's dict() conversion in the original.
type Row map[string]any

// Store is the durable relational store behind a plain query/execute
// interface (spec §5), grounded on original_source/memory/long_term.py's
// LongTermMemory. db_query dispatches through Query; executor persistence
// goes through the named Save* methods.
type Store interface {
	Query(ctx context.Context, sql string, params ...any) ([]Row, error)
	Execute(ctx context.Context, sql string, params ...any) (int64, error)
	AddMemoryEntry(ctx context.Context, namespace, key, valueText string, metadata map[string]any) error
	GetMemoryEntries(ctx context.Context, namespace string, limit int) ([]Row, error)
	SaveToolOutcome(ctx context.Context, traceID, stepID, toolName, status string, latencyMs int64, outcome map[string]any) error
	SaveTrace(ctx context.Context, trace *orchtypes.RunTrace) error
	SaveEvalResult(ctx context.Context, scenarioID string, passed bool, reason string, score float64, tracePath string) error
	Close()
}

// schemaStatements creates the tables the original's schema.sql seeds,
// translated to Postgres types (spec §9's "durable store" ambient concern).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS memory_entries (
		id SERIAL PRIMARY KEY,
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value_text TEXT NOT NULL,
		metadata_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tool_outcomes (
		id SERIAL PRIMARY KEY,
		trace_id TEXT NOT NULL,
		step_id TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		status TEXT NOT NULL,
		latency_ms BIGINT NOT NULL,
		outcome_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		trace_id TEXT NOT NULL,
		status TEXT NOT NULL,
		request_json TEXT NOT NULL,
		final_output_json TEXT NOT NULL,
		stop_reason TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS traces (
		trace_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		trace_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS eval_results (
		id SERIAL PRIMARY KEY,
		scenario_id TEXT NOT NULL,
		passed BOOLEAN NOT NULL,
		reason TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		trace_path TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
}

// PgStore is the pgx-backed Store, used whenever ORCHESTRON_DATABASE_URL
// is configured (spec §9 domain stack: jackc/pgx/v5 from bartekus-stagecraft).
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore connects a pool and applies schemaStatements idempotently.
func NewPgStore(ctx context.Context, databaseURL string) (*PgStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("memory: connect postgres: %w", err)
	}
	store := &PgStore{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PgStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("memory: apply schema: %w", err)
		}
	}
	return nil
}

// Query runs a read-only SQL statement and returns rows keyed by column
// name, mirroring sqlite3.Row's dict() conversion in the original.
func (s *PgStore) Query(ctx context.Context, sql string, params ...any) ([]Row, error) {
	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("memory: query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := []Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("memory: read row: %w", err)
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: iterate rows: %w", err)
	}
	return out, nil
}

// Execute runs a mutating statement and returns the affected row count.
func (s *PgStore) Execute(ctx context.Context, sql string, params ...any) (int64, error) {
	tag, err := s.pool.Exec(ctx, sql, params...)
	if err != nil {
		return 0, fmt.Errorf("memory: execute: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) AddMemoryEntry(ctx context.Context, namespace, key, valueText string, metadata map[string]any) error {
	metaJSON, err := json.Marshal(orEmptyMap(metadata))
	if err != nil {
		return fmt.Errorf("memory: marshal metadata: %w", err)
	}
	_, err = s.Execute(ctx,
		`INSERT INTO memory_entries(namespace, key, value_text, metadata_json, created_at) VALUES($1,$2,$3,$4,$5)`,
		namespace, key, valueText, string(metaJSON), utcNowISO())
	return err
}

func (s *PgStore) GetMemoryEntries(ctx context.Context, namespace string, limit int) ([]Row, error) {
	if namespace != "" {
		return s.Query(ctx,
			`SELECT * FROM memory_entries WHERE namespace = $1 ORDER BY id DESC LIMIT $2`, namespace, limit)
	}
	return s.Query(ctx, `SELECT * FROM memory_entries ORDER BY id DESC LIMIT $1`, limit)
}

func (s *PgStore) SaveToolOutcome(ctx context.Context, traceID, stepID, toolName, status string, latencyMs int64, outcome map[string]any) error {
	outcomeJSON, err := json.Marshal(orEmptyMap(outcome))
	if err != nil {
		return fmt.Errorf("memory: marshal outcome: %w", err)
	}
	_, err = s.Execute(ctx,
		`INSERT INTO tool_outcomes(trace_id, step_id, tool_name, status, latency_ms, outcome_json, created_at) VALUES($1,$2,$3,$4,$5,$6,$7)`,
		traceID, stepID, toolName, status, latencyMs, string(outcomeJSON), utcNowISO())
	return err
}

func (s *PgStore) SaveTrace(ctx context.Context, trace *orchtypes.RunTrace) error {
	traceJSON, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("memory: marshal trace: %w", err)
	}
	requestJSON, _ := json.Marshal(trace.Request)
	outputJSON, _ := json.Marshal(trace.FinalOutput)
	stopReason := string(trace.StopReason.Type)
	finishedAt := ""
	if trace.FinishedAt != nil {
		finishedAt = trace.FinishedAt.UTC().Format(time.RFC3339)
	}
	if _, err := s.Execute(ctx,
		`INSERT INTO runs(run_id, trace_id, status, request_json, final_output_json, stop_reason, started_at, finished_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (run_id) DO UPDATE SET status=$3, final_output_json=$5, stop_reason=$6, finished_at=$8`,
		trace.RunID, trace.TraceID, string(trace.Status), string(requestJSON), string(outputJSON), stopReason, trace.StartedAt.UTC().Format(time.RFC3339), finishedAt,
	); err != nil {
		return err
	}
	_, err = s.Execute(ctx,
		`INSERT INTO traces(trace_id, run_id, trace_json, created_at)
		 VALUES($1,$2,$3,$4)
		 ON CONFLICT (trace_id) DO UPDATE SET trace_json=$3`,
		trace.TraceID, trace.RunID, string(traceJSON), utcNowISO())
	return err
}

func (s *PgStore) SaveEvalResult(ctx context.Context, scenarioID string, passed bool, reason string, score float64, tracePath string) error {
	_, err := s.Execute(ctx,
		`INSERT INTO eval_results(scenario_id, passed, reason, score, trace_path, created_at) VALUES($1,$2,$3,$4,$5,$6)`,
		scenarioID, passed, reason, score, tracePath, utcNowISO())
	return err
}

func (s *PgStore) Close() { s.pool.Close() }

var _ Store = (*PgStore)(nil)

// MemStore is an in-process Store used when ORCHESTRON_DATABASE_URL is
// unset, so demos and eval runs work without a live Postgres (SPEC_FULL §9
// domain-stack note on the pgx dependency).
type MemStore struct {
	mu          sync.Mutex
	entries     []Row
	outcomes    []Row
	runs        map[string]Row
	traces      map[string]Row
	evalResults []Row
	nextID      int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		runs:   map[string]Row{},
		traces: map[string]Row{},
	}
}

// Query supports the small set of statements the db_query tool and CLI
// issue against memory_entries/tool_outcomes/eval_results; it is not a SQL
// engine, it pattern-matches on the table name in the FROM clause.
func (s *MemStore) Query(ctx context.Context, sql string, params ...any) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := tableNameFromSQL(sql)
	switch table {
	case "memory_entries":
		return cloneRows(s.entries), nil
	case "tool_outcomes":
		return cloneRows(s.outcomes), nil
	case "eval_results":
		return cloneRows(s.evalResults), nil
	case "runs":
		return mapValuesSorted(s.runs, "run_id"), nil
	case "traces":
		return mapValuesSorted(s.traces, "trace_id"), nil
	default:
		return []Row{}, nil
	}
}

func (s *MemStore) Execute(ctx context.Context, sql string, params ...any) (int64, error) {
	return 0, fmt.Errorf("memory: MemStore.Execute does not support arbitrary SQL, use the typed Save*/Add* methods")
}

func (s *MemStore) AddMemoryEntry(ctx context.Context, namespace, key, valueText string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.entries = append(s.entries, Row{
		"id": s.nextID, "namespace": namespace, "key": key,
		"value_text": valueText, "metadata_json": mustJSON(metadata), "created_at": utcNowISO(),
	})
	return nil
}

func (s *MemStore) GetMemoryEntries(ctx context.Context, namespace string, limit int) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Row{}
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if namespace == "" || s.entries[i]["namespace"] == namespace {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func (s *MemStore) SaveToolOutcome(ctx context.Context, traceID, stepID, toolName, status string, latencyMs int64, outcome map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.outcomes = append(s.outcomes, Row{
		"id": s.nextID, "trace_id": traceID, "step_id": stepID, "tool_name": toolName,
		"status": status, "latency_ms": latencyMs, "outcome_json": mustJSON(outcome), "created_at": utcNowISO(),
	})
	return nil
}

func (s *MemStore) SaveTrace(ctx context.Context, trace *orchtypes.RunTrace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stopReason := string(trace.StopReason.Type)
	var finishedAt time.Time
	if trace.FinishedAt != nil {
		finishedAt = *trace.FinishedAt
	}
	s.runs[trace.RunID] = Row{
		"run_id": trace.RunID, "trace_id": trace.TraceID, "status": string(trace.Status),
		"request_json": mustJSON(trace.Request), "final_output_json": mustJSON(trace.FinalOutput),
		"stop_reason": stopReason, "started_at": trace.StartedAt, "finished_at": finishedAt,
	}
	s.traces[trace.TraceID] = Row{
		"trace_id": trace.TraceID, "run_id": trace.RunID, "trace_json": mustJSON(trace), "created_at": utcNowISO(),
	}
	return nil
}

func (s *MemStore) SaveEvalResult(ctx context.Context, scenarioID string, passed bool, reason string, score float64, tracePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.evalResults = append(s.evalResults, Row{
		"id": s.nextID, "scenario_id": scenarioID, "passed": passed, "reason": reason,
		"score": score, "trace_path": tracePath, "created_at": utcNowISO(),
	})
	return nil
}

func (s *MemStore) Close() {}

var _ Store = (*MemStore)(nil)

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func utcNowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

func mapValuesSorted(m map[string]Row, keyField string) []Row {
	out := make([]Row, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i][keyField]) < fmt.Sprint(out[j][keyField])
	})
	return out
}

// tableNameFromSQL extracts the first table name following FROM in a
// simple SELECT statement. It is deliberately naive: MemStore exists only
// to let demos run without Postgres, not to interpret arbitrary SQL.
func tableNameFromSQL(sql string) string {
	const marker = "FROM "
	idx := indexFold(sql, marker)
	if idx < 0 {
		return ""
	}
	rest := sql[idx+len(marker):]
	end := 0
	for end < len(rest) && rest[end] != ' ' && rest[end] != '\n' && rest[end] != ';' {
		end++
	}
	return rest[:end]
}

func indexFold(haystack, marker string) int {
	upper := []byte(haystack)
	for i := range upper {
		if upper[i] >= 'a' && upper[i] <= 'z' {
			upper[i] -= 32
		}
	}
	markerUpper := []byte(marker)
	for i := range markerUpper {
		if markerUpper[i] >= 'a' && markerUpper[i] <= 'z' {
			markerUpper[i] -= 32
		}
	}
	s := string(upper)
	m := string(markerUpper)
	for i := 0; i+len(m) <= len(s); i++ {
		if s[i:i+len(m)] == m {
			return i
		}
	}
	return -1
}
