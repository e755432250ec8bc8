// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmnserve/dmnserve/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTable upserts a decision-table definition with tenant isolation.
func (r *SQLRepository) SaveTable(ctx context.Context, tenantID string, t *domain.StoredTable) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if t.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	query := `
		INSERT INTO decision_tables (
			id, tenant_id, name, description, version, hit_policy, aggregator,
			definition, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			version = excluded.version,
			hit_policy = excluded.hit_policy,
			aggregator = excluded.aggregator,
			definition = excluded.definition,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		t.ID, tenantID, t.Name, t.Description, t.Version, string(t.HitPolicy), string(t.Aggregator),
		string(t.Definition), enabled, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetTable retrieves a decision-table definition with tenant isolation.
func (r *SQLRepository) GetTable(ctx context.Context, tenantID string, tableID string) (*domain.StoredTable, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, hit_policy, aggregator,
			   definition, enabled, created_at, updated_at
		FROM decision_tables
		WHERE tenant_id = ? AND id = ? AND enabled = 1
	`

	var t domain.StoredTable
	var hitPolicy, aggregator, definition string
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, tableID).Scan(
		&t.ID, &t.TenantID, &t.Name, &t.Description, &t.Version, &hitPolicy, &aggregator,
		&definition, &enabled, &t.CreatedAt, &t.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	t.HitPolicy = hitPolicy
	t.Aggregator = aggregator
	t.Definition = []byte(definition)
	t.Enabled = enabled == 1

	return &t, nil
}

// ListTables retrieves all enabled decision tables for a tenant.
func (r *SQLRepository) ListTables(ctx context.Context, tenantID string) ([]*domain.StoredTable, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, hit_policy, aggregator,
			   definition, enabled, created_at, updated_at
		FROM decision_tables
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []*domain.StoredTable
	for rows.Next() {
		var t domain.StoredTable
		var hitPolicy, aggregator, definition string
		var enabled int

		if err := rows.Scan(
			&t.ID, &t.TenantID, &t.Name, &t.Description, &t.Version, &hitPolicy, &aggregator,
			&definition, &enabled, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}

		t.HitPolicy = hitPolicy
		t.Aggregator = aggregator
		t.Definition = []byte(definition)
		t.Enabled = enabled == 1
		tables = append(tables, &t)
	}

	return tables, rows.Err()
}

// DeleteTable soft-deletes a decision table by setting enabled = 0.
func (r *SQLRepository) DeleteTable(ctx context.Context, tenantID string, tableID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE decision_tables
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, tableID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveEvaluationRecord stores the audit trail of one evaluation call with
// tenant isolation.
func (r *SQLRepository) SaveEvaluationRecord(ctx context.Context, tenantID string, rec *domain.EvaluationRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation metadata: %w", err)
	}

	query := `
		INSERT INTO evaluation_records (
			id, tenant_id, table_id, timestamp, variables, outcome, result,
			failure_kind, failure_message, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, tenantID, rec.TableID, rec.Timestamp, string(rec.Variables), rec.Outcome,
		string(rec.Result), rec.FailureKind, rec.FailureMessage, string(metadata),
	)
	return err
}

// GetEvaluationRecord retrieves an evaluation record by ID with tenant
// isolation.
func (r *SQLRepository) GetEvaluationRecord(ctx context.Context, tenantID string, id string) (*domain.EvaluationRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, table_id, timestamp, variables, outcome, result,
			   failure_kind, failure_message, metadata
		FROM evaluation_records
		WHERE tenant_id = ? AND id = ?
	`

	var rec domain.EvaluationRecord
	var variables, result, metadata string
	var failureKind, failureMessage sql.NullString

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id).Scan(
		&rec.ID, &rec.TenantID, &rec.TableID, &rec.Timestamp, &variables, &rec.Outcome,
		&result, &failureKind, &failureMessage, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Variables = []byte(variables)
	rec.Result = []byte(result)
	rec.FailureKind = failureKind.String
	rec.FailureMessage = failureMessage.String
	if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation metadata for %s: %w", rec.ID, err)
	}

	return &rec, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
