package repository

// Schema definitions for dmnserve. Compatible with both SQLite and
// PostgreSQL.

const schemaDecisionTables = `
CREATE TABLE IF NOT EXISTS decision_tables (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    hit_policy TEXT NOT NULL,
    aggregator TEXT,
    definition TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_decision_tables_tenant ON decision_tables(tenant_id);
CREATE INDEX IF NOT EXISTS idx_decision_tables_enabled ON decision_tables(tenant_id, enabled);
`

const schemaEvaluationRecords = `
CREATE TABLE IF NOT EXISTS evaluation_records (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    table_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    variables TEXT NOT NULL,
    outcome TEXT NOT NULL,
    result TEXT,
    failure_kind TEXT,
    failure_message TEXT,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluation_records_tenant ON evaluation_records(tenant_id);
CREATE INDEX IF NOT EXISTS idx_evaluation_records_table ON evaluation_records(tenant_id, table_id);
CREATE INDEX IF NOT EXISTS idx_evaluation_records_outcome ON evaluation_records(tenant_id, outcome);
CREATE INDEX IF NOT EXISTS idx_evaluation_records_timestamp ON evaluation_records(tenant_id, timestamp);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaDecisionTables,
		schemaEvaluationRecords,
	}
}
