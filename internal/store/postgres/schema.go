/*
schema.go - the DDL this package expects to already be applied. Grounded on
the teacher's store/sqlite/sqlite.go migrate() method, translated from
SQLite's TEXT-everything dialect to Postgres: UUID/TIMESTAMPTZ/JSONB columns,
and the idempotency uniqueness moved from a single column to the composite
(source_type, source_id, entry_type) the spec's ledger requires.

This package does not run migrations itself - Schema is exported so cmd/seed
and integration tests can apply it against a throwaway database, the same
division of labor the teacher's migrate() had, just without an ORM.
*/
package postgres

const Schema = `
CREATE TABLE IF NOT EXISTS policies (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL,
	key TEXT NOT NULL,
	category TEXT NOT NULL,
	created_at DATE NOT NULL,
	UNIQUE (company_id, key)
);

CREATE TABLE IF NOT EXISTS policy_versions (
	id UUID PRIMARY KEY,
	policy_id UUID NOT NULL REFERENCES policies(id),
	version INTEGER NOT NULL,
	effective_from DATE NOT NULL,
	effective_to DATE,
	type TEXT NOT NULL,
	accrual_method TEXT,
	settings_json JSONB NOT NULL,
	created_by UUID NOT NULL,
	change_reason TEXT,
	created_at DATE NOT NULL,
	UNIQUE (policy_id, version)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_policy_versions_current
	ON policy_versions(policy_id) WHERE effective_to IS NULL;

CREATE TABLE IF NOT EXISTS assignments (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL,
	employee_id UUID NOT NULL,
	policy_id UUID NOT NULL REFERENCES policies(id),
	effective_from DATE NOT NULL,
	effective_to DATE,
	created_by UUID NOT NULL,
	created_at DATE NOT NULL,
	UNIQUE (company_id, employee_id, policy_id, effective_from)
);

CREATE INDEX IF NOT EXISTS idx_assignments_company_date
	ON assignments(company_id, effective_from, effective_to);
CREATE INDEX IF NOT EXISTS idx_assignments_employee
	ON assignments(company_id, employee_id, policy_id);

CREATE TABLE IF NOT EXISTS requests (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL,
	employee_id UUID NOT NULL,
	policy_id UUID NOT NULL,
	start_at TIMESTAMPTZ NOT NULL,
	end_at TIMESTAMPTZ NOT NULL,
	requested_minutes BIGINT NOT NULL,
	reason TEXT,
	status TEXT NOT NULL,
	submitted_at TIMESTAMPTZ,
	decided_at TIMESTAMPTZ,
	decided_by UUID,
	decision_note TEXT,
	idempotency_key TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (company_id, employee_id, idempotency_key)
);

CREATE INDEX IF NOT EXISTS idx_requests_employee_policy
	ON requests(company_id, employee_id, policy_id, status);
CREATE INDEX IF NOT EXISTS idx_requests_company
	ON requests(company_id, created_at DESC);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL,
	employee_id UUID NOT NULL,
	policy_id UUID NOT NULL,
	policy_version_id UUID,
	entry_type TEXT NOT NULL,
	amount_minutes BIGINT NOT NULL,
	effective_at TIMESTAMPTZ NOT NULL,
	source_type TEXT NOT NULL,
	source_id TEXT NOT NULL,
	metadata_json JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (source_type, source_id, entry_type)
);

CREATE INDEX IF NOT EXISTS idx_ledger_employee_policy
	ON ledger_entries(company_id, employee_id, policy_id, effective_at DESC);
CREATE INDEX IF NOT EXISTS idx_ledger_source
	ON ledger_entries(company_id, source_id);

CREATE TABLE IF NOT EXISTS balance_snapshots (
	company_id UUID NOT NULL,
	employee_id UUID NOT NULL,
	policy_id UUID NOT NULL,
	accrued_minutes BIGINT NOT NULL,
	used_minutes BIGINT NOT NULL,
	held_minutes BIGINT NOT NULL,
	available_minutes BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	version BIGINT NOT NULL,
	PRIMARY KEY (company_id, employee_id, policy_id)
);

CREATE TABLE IF NOT EXISTS company_holidays (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL,
	date DATE NOT NULL,
	name TEXT NOT NULL,
	UNIQUE (company_id, date)
);

CREATE TABLE IF NOT EXISTS audit_log (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL,
	actor_id UUID NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL,
	before_json JSONB,
	after_json JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_company_date
	ON audit_log(company_id, created_at DESC);
`
