package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	cfg  Config
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		cfg:  cfg,
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateRun inserts a new run record
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if run.Workflow == "" {
		return fmt.Errorf("run workflow is required")
	}
	if run.Status == "" {
		run.Status = RunStatusPending
	}
	if run.Input == "" {
		run.Input = "{}"
	}
	if run.Output == "" {
		run.Output = "{}"
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO runs (id, workflow, status, started_at, input, output)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Workflow, run.Status, run.StartedAt, run.Input, run.Output)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, workflow, status, started_at, completed_at, error, input, output,
		       created_at, updated_at
		FROM runs
		WHERE id = ?
	`

	run := &Run{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Workflow, &run.Status, &run.StartedAt, &run.CompletedAt,
		&run.Error, &run.Input, &run.Output, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// UpdateRunStatus transitions a run to a new status
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, id string, status RunStatus, errMsg string) error {
	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	query := `
		UPDATE runs
		SET status = ?,
		    error = COALESCE(?, error),
		    completed_at = CASE WHEN ? IN ('completed', 'failed', 'canceled')
		                        THEN CURRENT_TIMESTAMP ELSE completed_at END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, status, errVal, status, id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return nil
}

// CompleteRun marks a run terminal and records its final output
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, status RunStatus, output string, errMsg string) error {
	if status != RunStatusCompleted && status != RunStatusFailed && status != RunStatusCanceled {
		return fmt.Errorf("non-terminal status: %s", status)
	}
	if output == "" {
		output = "{}"
	}
	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	query := `
		UPDATE runs
		SET status = ?,
		    output = ?,
		    error = ?,
		    completed_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, status, output, errVal, id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return nil
}

// ListRuns returns runs matching the filter, most recent first
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	var workflow, status sql.NullString
	if filter.Workflow != "" {
		workflow = sql.NullString{String: filter.Workflow, Valid: true}
	}
	if filter.Status != "" {
		status = sql.NullString{String: string(filter.Status), Valid: true}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, workflow, status, started_at, completed_at, error, input, output,
		       created_at, updated_at
		FROM runs
		WHERE (? IS NULL OR workflow = ?)
		  AND (? IS NULL OR status = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, workflow, workflow, status, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID, &run.Workflow, &run.Status, &run.StartedAt, &run.CompletedAt,
			&run.Error, &run.Input, &run.Output, &run.CreatedAt, &run.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// AppendEvent appends an event to a run's stream
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) (int64, error) {
	if event.RunID == "" {
		return 0, fmt.Errorf("event run ID is required")
	}
	if event.Level == "" {
		event.Level = EventLevelInfo
	}
	if event.Data == "" {
		event.Data = "{}"
	}

	query := `
		INSERT INTO events (run_id, instruction, kind, level, message, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		event.RunID, event.Instruction, event.Kind, event.Level, event.Message, event.Data)
	if err != nil {
		return 0, fmt.Errorf("failed to append event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get event ID: %w", err)
	}
	event.ID = id

	return id, nil
}

// GetEvents returns a run's events in append order
func (s *SQLiteStore) GetEvents(ctx context.Context, runID string, level EventLevel) ([]*Event, error) {
	var levelVal sql.NullString
	if level != "" {
		levelVal = sql.NullString{String: string(level), Valid: true}
	}

	query := `
		SELECT id, run_id, instruction, kind, level, message, data, created_at
		FROM events
		WHERE run_id = ?
		  AND (? IS NULL OR level = ?)
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, runID, levelVal, levelVal)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event := &Event{}
		err := rows.Scan(
			&event.ID, &event.RunID, &event.Instruction, &event.Kind,
			&event.Level, &event.Message, &event.Data, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// AppendAudit records an audit log entry
func (s *SQLiteStore) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	if entry.Action == "" {
		return fmt.Errorf("audit action is required")
	}
	if entry.Details == "" {
		entry.Details = "{}"
	}

	query := `
		INSERT INTO audit (run_id, action, actor, details)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		entry.RunID, entry.Action, entry.Actor, entry.Details)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry ID: %w", err)
	}
	entry.ID = id

	return nil
}

// GetAuditLog returns audit entries, most recent first
func (s *SQLiteStore) GetAuditLog(ctx context.Context, runID string, limit int) ([]*AuditEntry, error) {
	var runVal sql.NullString
	if runID != "" {
		runVal = sql.NullString{String: runID, Valid: true}
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, run_id, action, actor, details, created_at
		FROM audit
		WHERE (? IS NULL OR run_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, runVal, runVal, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry := &AuditEntry{}
		err := rows.Scan(
			&entry.ID, &entry.RunID, &entry.Action, &entry.Actor,
			&entry.Details, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// HealthCheck verifies database connectivity
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}
