// Package domain defines the core interfaces and types for dmnserve.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Decision-table definitions
	SaveTable(ctx context.Context, tenantID string, t *StoredTable) error
	GetTable(ctx context.Context, tenantID string, tableID string) (*StoredTable, error)
	ListTables(ctx context.Context, tenantID string) ([]*StoredTable, error)
	DeleteTable(ctx context.Context, tenantID string, tableID string) error

	// Evaluation audit records
	SaveEvaluationRecord(ctx context.Context, tenantID string, r *EvaluationRecord) error
	GetEvaluationRecord(ctx context.Context, tenantID string, id string) (*EvaluationRecord, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// StoredTable is the persisted, serialized form of a decision table
// definition. The in-memory evaluation model (domain.DecisionTable) is
// built from it by an external parser/compiler (internal/expr); the core
// itself never sees StoredTable.
type StoredTable struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Version     string    `json:"version"`
	HitPolicy   string    `json:"hitPolicy"`
	Aggregator  string    `json:"aggregator,omitempty"`
	Definition  []byte    `json:"definition"` // JSON-encoded TableDefinition, see internal/expr
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
