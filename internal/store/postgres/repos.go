package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dayledger/pto/internal/apperr"
	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/store"
)

func cd(d domain.CivilDate) time.Time { return d.AtUTCMidnight() }
func fromDate(t time.Time) domain.CivilDate { return domain.CivilDateOf(t, time.UTC) }

func marshalJSON(v any) []byte {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// ---- policies ----

type policyRepo struct{ tx pgx.Tx }

func (r policyRepo) Create(ctx context.Context, p domain.Policy, v domain.PolicyVersion) error {
	settingsJSON := marshalJSON(v.Settings)
	var method any
	if v.AccrualMethod != nil {
		method = string(*v.AccrualMethod)
	}
	_, err := r.tx.Exec(ctx, `INSERT INTO policies (id, company_id, key, category, created_at) VALUES ($1,$2,$3,$4,$5)`,
		uuid.UUID(p.ID), uuid.UUID(p.CompanyID), p.Key, p.Category, cd(p.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("policy key already exists")
		}
		return apperr.Internal("insert policy", err)
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO policy_versions (id, policy_id, version, effective_from, effective_to, type, accrual_method, settings_json, created_by, change_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		uuid.UUID(v.ID), uuid.UUID(v.PolicyID), v.Version, cd(v.EffectiveFrom), nil, string(v.Type), method, settingsJSON, uuid.UUID(v.CreatedBy), v.ChangeReason, cd(v.CreatedAt))
	if err != nil {
		return apperr.Internal("insert policy version", err)
	}
	return nil
}

func (r policyRepo) GetByID(ctx context.Context, company domain.CompanyID, id domain.PolicyID) (*domain.Policy, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, company_id, key, category, created_at FROM policies WHERE company_id=$1 AND id=$2`, uuid.UUID(company), uuid.UUID(id))
	return scanPolicy(row)
}

func (r policyRepo) GetByKey(ctx context.Context, company domain.CompanyID, key string) (*domain.Policy, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, company_id, key, category, created_at FROM policies WHERE company_id=$1 AND key=$2`, uuid.UUID(company), key)
	return scanPolicy(row)
}

func scanPolicy(row pgx.Row) (*domain.Policy, error) {
	var p domain.Policy
	var id, companyID uuid.UUID
	var createdAt time.Time
	if err := row.Scan(&id, &companyID, &p.Key, &p.Category, &createdAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, apperr.Internal("scan policy", err)
	}
	p.ID, p.CompanyID, p.CreatedAt = domain.PolicyID(id), domain.CompanyID(companyID), fromDate(createdAt)
	return &p, nil
}

func (r policyRepo) ListByCompany(ctx context.Context, company domain.CompanyID, offset, limit int) ([]domain.Policy, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, company_id, key, category, created_at FROM policies WHERE company_id=$1 ORDER BY key OFFSET $2 LIMIT $3`, uuid.UUID(company), offset, limit)
	if err != nil {
		return nil, apperr.Internal("list policies", err)
	}
	defer rows.Close()
	var out []domain.Policy
	for rows.Next() {
		var p domain.Policy
		var id, companyID uuid.UUID
		var createdAt time.Time
		if err := rows.Scan(&id, &companyID, &p.Key, &p.Category, &createdAt); err != nil {
			return nil, apperr.Internal("scan policy row", err)
		}
		p.ID, p.CompanyID, p.CreatedAt = domain.PolicyID(id), domain.CompanyID(companyID), fromDate(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r policyRepo) EndDateAndInsertVersion(ctx context.Context, policyID domain.PolicyID, currentVersionID domain.PolicyVersionID, newEffectiveTo domain.CivilDate, next domain.PolicyVersion) error {
	_, err := r.tx.Exec(ctx, `UPDATE policy_versions SET effective_to=$1 WHERE id=$2`, cd(newEffectiveTo), uuid.UUID(currentVersionID))
	if err != nil {
		return apperr.Internal("end-date policy version", err)
	}
	settingsJSON := marshalJSON(next.Settings)
	var method any
	if next.AccrualMethod != nil {
		method = string(*next.AccrualMethod)
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO policy_versions (id, policy_id, version, effective_from, effective_to, type, accrual_method, settings_json, created_by, change_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		uuid.UUID(next.ID), uuid.UUID(policyID), next.Version, cd(next.EffectiveFrom), nil, string(next.Type), method, settingsJSON, uuid.UUID(next.CreatedBy), next.ChangeReason, cd(next.CreatedAt))
	if err != nil {
		return apperr.Internal("insert next policy version", err)
	}
	return nil
}

func scanVersion(row pgx.Row) (*domain.PolicyVersion, error) {
	var v domain.PolicyVersion
	var id, policyID, createdBy uuid.UUID
	var effFrom, createdAt time.Time
	var effTo *time.Time
	var typ string
	var method *string
	var settingsJSON []byte
	if err := row.Scan(&id, &policyID, &v.Version, &effFrom, &effTo, &typ, &method, &settingsJSON, &createdBy, &v.ChangeReason, &createdAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, apperr.Internal("scan policy version", err)
	}
	v.ID, v.PolicyID, v.CreatedBy = domain.PolicyVersionID(id), domain.PolicyID(policyID), domain.EmployeeID(createdBy)
	v.EffectiveFrom, v.CreatedAt = fromDate(effFrom), fromDate(createdAt)
	if effTo != nil {
		d := fromDate(*effTo)
		v.EffectiveTo = &d
	}
	v.Type = domain.PolicyType(typ)
	if method != nil {
		m := domain.AccrualMethod(*method)
		v.AccrualMethod = &m
	}
	if len(settingsJSON) > 0 {
		_ = json.Unmarshal(settingsJSON, &v.Settings)
	}
	return &v, nil
}

func (r policyRepo) CurrentVersion(ctx context.Context, policyID domain.PolicyID) (*domain.PolicyVersion, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, policy_id, version, effective_from, effective_to, type, accrual_method, settings_json, created_by, change_reason, created_at
		FROM policy_versions WHERE policy_id=$1 AND effective_to IS NULL`, uuid.UUID(policyID))
	return scanVersion(row)
}

func (r policyRepo) VersionEffectiveOn(ctx context.Context, policyID domain.PolicyID, d domain.CivilDate) (*domain.PolicyVersion, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, policy_id, version, effective_from, effective_to, type, accrual_method, settings_json, created_by, change_reason, created_at
		FROM policy_versions WHERE policy_id=$1 AND effective_from<=$2 AND (effective_to IS NULL OR effective_to>$2)`, uuid.UUID(policyID), cd(d))
	return scanVersion(row)
}

func (r policyRepo) VersionChain(ctx context.Context, policyID domain.PolicyID) ([]domain.PolicyVersion, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, policy_id, version, effective_from, effective_to, type, accrual_method, settings_json, created_by, change_reason, created_at
		FROM policy_versions WHERE policy_id=$1 ORDER BY version`, uuid.UUID(policyID))
	if err != nil {
		return nil, apperr.Internal("list policy version chain", err)
	}
	defer rows.Close()
	var out []domain.PolicyVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, *v)
		}
	}
	return out, rows.Err()
}

// ---- assignments ----

type assignmentRepo struct{ tx pgx.Tx }

func (r assignmentRepo) Create(ctx context.Context, a domain.Assignment) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO assignments (id, company_id, employee_id, policy_id, effective_from, effective_to, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		uuid.UUID(a.ID), uuid.UUID(a.CompanyID), uuid.UUID(a.EmployeeID), uuid.UUID(a.PolicyID), cd(a.EffectiveFrom), nullableDate(a.EffectiveTo), uuid.UUID(a.CreatedBy), cd(a.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("assignment already exists for this effective_from")
		}
		return apperr.Internal("insert assignment", err)
	}
	return nil
}

func nullableDate(d *domain.CivilDate) any {
	if d == nil {
		return nil
	}
	return cd(*d)
}

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var a domain.Assignment
	var id, companyID, employeeID, policyID, createdBy uuid.UUID
	var effFrom, createdAt time.Time
	var effTo *time.Time
	if err := row.Scan(&id, &companyID, &employeeID, &policyID, &effFrom, &effTo, &createdBy, &createdAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, apperr.Internal("scan assignment", err)
	}
	a.ID, a.CompanyID, a.EmployeeID, a.PolicyID, a.CreatedBy = domain.AssignmentID(id), domain.CompanyID(companyID), domain.EmployeeID(employeeID), domain.PolicyID(policyID), domain.EmployeeID(createdBy)
	a.EffectiveFrom, a.CreatedAt = fromDate(effFrom), fromDate(createdAt)
	if effTo != nil {
		d := fromDate(*effTo)
		a.EffectiveTo = &d
	}
	return &a, nil
}

const assignmentCols = `id, company_id, employee_id, policy_id, effective_from, effective_to, created_by, created_at`

func (r assignmentRepo) Get(ctx context.Context, company domain.CompanyID, id domain.AssignmentID) (*domain.Assignment, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+assignmentCols+` FROM assignments WHERE company_id=$1 AND id=$2`, uuid.UUID(company), uuid.UUID(id))
	return scanAssignment(row)
}

func (r assignmentRepo) EndDate(ctx context.Context, id domain.AssignmentID, effectiveTo domain.CivilDate) error {
	_, err := r.tx.Exec(ctx, `UPDATE assignments SET effective_to=$1 WHERE id=$2`, cd(effectiveTo), uuid.UUID(id))
	if err != nil {
		return apperr.Internal("end-date assignment", err)
	}
	return nil
}

func (r assignmentRepo) ActiveOverlapping(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID, from domain.CivilDate, to *domain.CivilDate) ([]domain.Assignment, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+assignmentCols+` FROM assignments WHERE company_id=$1 AND employee_id=$2 AND policy_id=$3
		AND effective_from < COALESCE($4, 'infinity'::date) AND COALESCE(effective_to, 'infinity'::date) > $5`,
		uuid.UUID(company), uuid.UUID(employee), uuid.UUID(policy), nullableDate(to), cd(from))
	if err != nil {
		return nil, apperr.Internal("list overlapping assignments", err)
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func scanAssignments(rows pgx.Rows) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, rows.Err()
}

func (r assignmentRepo) ByPolicy(ctx context.Context, company domain.CompanyID, policy domain.PolicyID) ([]domain.Assignment, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+assignmentCols+` FROM assignments WHERE company_id=$1 AND policy_id=$2 ORDER BY effective_from`, uuid.UUID(company), uuid.UUID(policy))
	if err != nil {
		return nil, apperr.Internal("list assignments by policy", err)
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func (r assignmentRepo) ByEmployee(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID) ([]domain.Assignment, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+assignmentCols+` FROM assignments WHERE company_id=$1 AND employee_id=$2 ORDER BY effective_from`, uuid.UUID(company), uuid.UUID(employee))
	if err != nil {
		return nil, apperr.Internal("list assignments by employee", err)
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func (r assignmentRepo) ActiveOn(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID, d domain.CivilDate) (*domain.Assignment, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+assignmentCols+` FROM assignments WHERE company_id=$1 AND employee_id=$2 AND policy_id=$3
		AND effective_from<=$4 AND (effective_to IS NULL OR effective_to>$4) LIMIT 1`, uuid.UUID(company), uuid.UUID(employee), uuid.UUID(policy), cd(d))
	return scanAssignment(row)
}

func (r assignmentRepo) AllActiveOn(ctx context.Context, company *domain.CompanyID, d domain.CivilDate) ([]domain.Assignment, error) {
	var rows pgx.Rows
	var err error
	if company != nil {
		rows, err = r.tx.Query(ctx, `SELECT `+assignmentCols+` FROM assignments WHERE company_id=$1 AND effective_from<=$2 AND (effective_to IS NULL OR effective_to>$2)`, uuid.UUID(*company), cd(d))
	} else {
		rows, err = r.tx.Query(ctx, `SELECT `+assignmentCols+` FROM assignments WHERE effective_from<=$1 AND (effective_to IS NULL OR effective_to>$1)`, cd(d))
	}
	if err != nil {
		return nil, apperr.Internal("list all active assignments", err)
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// ---- requests ----

type requestRepo struct{ tx pgx.Tx }

const requestCols = `id, company_id, employee_id, policy_id, start_at, end_at, requested_minutes, reason, status, submitted_at, decided_at, decided_by, decision_note, idempotency_key, created_at`

func (r requestRepo) Create(ctx context.Context, req domain.Request) (*domain.Request, bool, error) {
	if _, err := r.tx.Exec(ctx, `SAVEPOINT request_create`); err != nil {
		return nil, false, apperr.Internal("open request savepoint", err)
	}
	_, err := r.tx.Exec(ctx, `INSERT INTO requests (`+requestCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		uuid.UUID(req.ID), uuid.UUID(req.CompanyID), uuid.UUID(req.EmployeeID), uuid.UUID(req.PolicyID), req.StartAt, req.EndAt, req.RequestedMinutes, req.Reason, string(req.Status),
		req.SubmittedAt, req.DecidedAt, nullableEmployeeID(req.DecidedBy), req.DecisionNote, nullableString(req.IdempotencyKey), req.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) && req.IdempotencyKey != "" {
			if _, rerr := r.tx.Exec(ctx, `ROLLBACK TO SAVEPOINT request_create`); rerr != nil {
				return nil, false, apperr.Internal("rollback to request savepoint", rerr)
			}
			existing, ferr := r.findByIdempotencyKey(ctx, req.CompanyID, req.EmployeeID, req.IdempotencyKey)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, false, nil
		}
		return nil, false, apperr.Internal("insert request", err)
	}
	if _, err := r.tx.Exec(ctx, `RELEASE SAVEPOINT request_create`); err != nil {
		return nil, false, apperr.Internal("release request savepoint", err)
	}
	return &req, true, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableEmployeeID(id *domain.EmployeeID) any {
	if id == nil {
		return nil
	}
	return uuid.UUID(*id)
}

func (r requestRepo) findByIdempotencyKey(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, key string) (*domain.Request, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+requestCols+` FROM requests WHERE company_id=$1 AND employee_id=$2 AND idempotency_key=$3`,
		uuid.UUID(company), uuid.UUID(employee), key)
	return scanRequest(row)
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var req domain.Request
	var id, companyID, employeeID, policyID uuid.UUID
	var decidedBy *uuid.UUID
	var status string
	var idempotencyKey *string
	if err := row.Scan(&id, &companyID, &employeeID, &policyID, &req.StartAt, &req.EndAt, &req.RequestedMinutes, &req.Reason, &status,
		&req.SubmittedAt, &req.DecidedAt, &decidedBy, &req.DecisionNote, &idempotencyKey, &req.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, apperr.Internal("scan request", err)
	}
	req.ID, req.CompanyID, req.EmployeeID, req.PolicyID = domain.RequestID(id), domain.CompanyID(companyID), domain.EmployeeID(employeeID), domain.PolicyID(policyID)
	req.Status = domain.RequestStatus(status)
	if decidedBy != nil {
		e := domain.EmployeeID(*decidedBy)
		req.DecidedBy = &e
	}
	if idempotencyKey != nil {
		req.IdempotencyKey = *idempotencyKey
	}
	return &req, nil
}

func (r requestRepo) Get(ctx context.Context, company domain.CompanyID, id domain.RequestID) (*domain.Request, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+requestCols+` FROM requests WHERE company_id=$1 AND id=$2`, uuid.UUID(company), uuid.UUID(id))
	return scanRequest(row)
}

func (r requestRepo) UpdateStatus(ctx context.Context, req domain.Request) error {
	_, err := r.tx.Exec(ctx, `UPDATE requests SET status=$1, decided_at=$2, decided_by=$3, decision_note=$4 WHERE id=$5`,
		string(req.Status), req.DecidedAt, nullableEmployeeID(req.DecidedBy), req.DecisionNote, uuid.UUID(req.ID))
	if err != nil {
		return apperr.Internal("update request status", err)
	}
	return nil
}

func (r requestRepo) OverlappingActive(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID, start, end time.Time) ([]domain.Request, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+requestCols+` FROM requests WHERE company_id=$1 AND employee_id=$2 AND policy_id=$3
		AND status IN ('SUBMITTED','APPROVED') AND start_at<$5 AND end_at>$4`,
		uuid.UUID(company), uuid.UUID(employee), uuid.UUID(policy), start, end)
	if err != nil {
		return nil, apperr.Internal("list overlapping requests", err)
	}
	defer rows.Close()
	var out []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		if req != nil {
			out = append(out, *req)
		}
	}
	return out, rows.Err()
}

func (r requestRepo) List(ctx context.Context, f store.RequestFilter) ([]domain.Request, error) {
	query := `SELECT ` + requestCols + ` FROM requests WHERE company_id=$1`
	args := []any{uuid.UUID(f.CompanyID)}
	if f.EmployeeID != nil {
		args = append(args, uuid.UUID(*f.EmployeeID))
		query += andEq("employee_id", len(args))
	}
	if f.PolicyID != nil {
		args = append(args, uuid.UUID(*f.PolicyID))
		query += andEq("policy_id", len(args))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		query += andEq("status", len(args))
	}
	query += ` ORDER BY created_at DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, f.Offset, limit)
	query += fmtOffsetLimit(len(args) - 1)
	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("list requests", err)
	}
	defer rows.Close()
	var out []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		if req != nil {
			out = append(out, *req)
		}
	}
	return out, rows.Err()
}

// andEq and fmtOffsetLimit build simple positional-parameter clauses
// without pulling in a query builder dependency the teacher's pack never
// used (its SQLite store always interpolated fixed clauses).
func andEq(col string, n int) string {
	return " AND " + col + " = $" + strconv.Itoa(n)
}

func fmtOffsetLimit(n int) string {
	return " OFFSET $" + strconv.Itoa(n) + " LIMIT $" + strconv.Itoa(n+1)
}

// ---- ledger ----

type ledgerRepo struct{ tx pgx.Tx }

const ledgerCols = `id, company_id, employee_id, policy_id, policy_version_id, entry_type, amount_minutes, effective_at, source_type, source_id, metadata_json, created_at`

// Post inserts e under a SAVEPOINT (spec §4.6): on the (source_type,
// source_id, entry_type) unique-index collision it rolls back only the
// savepoint and returns posted=false, leaving the caller's outer
// transaction free to continue.
func (r ledgerRepo) Post(ctx context.Context, e domain.LedgerEntry) (bool, error) {
	if _, err := r.tx.Exec(ctx, `SAVEPOINT ledger_post`); err != nil {
		return false, apperr.Internal("open ledger savepoint", err)
	}
	_, err := r.tx.Exec(ctx, `INSERT INTO ledger_entries (`+ledgerCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		uuid.UUID(e.ID), uuid.UUID(e.CompanyID), uuid.UUID(e.EmployeeID), uuid.UUID(e.PolicyID), uuid.UUID(e.PolicyVersionID),
		string(e.EntryType), e.AmountMinutes, e.EffectiveAt, string(e.SourceType), e.SourceID, marshalJSON(e.Metadata), e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			if _, rerr := r.tx.Exec(ctx, `ROLLBACK TO SAVEPOINT ledger_post`); rerr != nil {
				return false, apperr.Internal("rollback to ledger savepoint", rerr)
			}
			return false, nil
		}
		return false, apperr.Internal("insert ledger entry", err)
	}
	if _, err := r.tx.Exec(ctx, `RELEASE SAVEPOINT ledger_post`); err != nil {
		return false, apperr.Internal("release ledger savepoint", err)
	}
	return true, nil
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var id, companyID, employeeID, policyID, versionID uuid.UUID
	var entryType, sourceType string
	var metaJSON []byte
	if err := row.Scan(&id, &companyID, &employeeID, &policyID, &versionID, &entryType, &e.AmountMinutes, &e.EffectiveAt, &sourceType, &e.SourceID, &metaJSON, &e.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, apperr.Internal("scan ledger entry", err)
	}
	e.ID, e.CompanyID, e.EmployeeID, e.PolicyID, e.PolicyVersionID = domain.LedgerEntryID(id), domain.CompanyID(companyID), domain.EmployeeID(employeeID), domain.PolicyID(policyID), domain.PolicyVersionID(versionID)
	e.EntryType, e.SourceType = domain.EntryType(entryType), domain.SourceType(sourceType)
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &e.Metadata)
	}
	return &e, nil
}

func (r ledgerRepo) FindBySource(ctx context.Context, company domain.CompanyID, sourceType domain.SourceType, sourceID string, entryType domain.EntryType) (*domain.LedgerEntry, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+ledgerCols+` FROM ledger_entries WHERE company_id=$1 AND source_type=$2 AND source_id=$3 AND entry_type=$4`,
		uuid.UUID(company), string(sourceType), sourceID, string(entryType))
	return scanLedgerEntry(row)
}

func (r ledgerRepo) EntriesFor(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID) ([]domain.LedgerEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+ledgerCols+` FROM ledger_entries WHERE company_id=$1 AND employee_id=$2 AND policy_id=$3 ORDER BY effective_at`, uuid.UUID(company), uuid.UUID(employee), uuid.UUID(policy))
	if err != nil {
		return nil, apperr.Internal("list ledger entries", err)
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

func scanLedgerEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, rows.Err()
}

func (r ledgerRepo) EntriesBySource(ctx context.Context, company domain.CompanyID, sourceID string) ([]domain.LedgerEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+ledgerCols+` FROM ledger_entries WHERE company_id=$1 AND source_id=$2 ORDER BY created_at`, uuid.UUID(company), sourceID)
	if err != nil {
		return nil, apperr.Internal("list ledger entries by source", err)
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

func (r ledgerRepo) List(ctx context.Context, f store.LedgerListFilter) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerCols + ` FROM ledger_entries WHERE company_id=$1`
	args := []any{uuid.UUID(f.CompanyID)}
	if f.EmployeeID != nil {
		args = append(args, uuid.UUID(*f.EmployeeID))
		query += andEq("employee_id", len(args))
	}
	if f.PolicyID != nil {
		args = append(args, uuid.UUID(*f.PolicyID))
		query += andEq("policy_id", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += " AND effective_at >= $" + strconv.Itoa(len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += " AND effective_at < $" + strconv.Itoa(len(args))
	}
	query += ` ORDER BY effective_at DESC, created_at DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, f.Offset, limit)
	query += fmtOffsetLimit(len(args) - 1)
	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("list ledger", err)
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

// ---- snapshots ----

type snapshotRepo struct{ tx pgx.Tx }

const snapshotCols = `company_id, employee_id, policy_id, accrued_minutes, used_minutes, held_minutes, available_minutes, updated_at, version`

func scanSnapshot(row pgx.Row) (*domain.BalanceSnapshot, error) {
	var s domain.BalanceSnapshot
	var companyID, employeeID, policyID uuid.UUID
	if err := row.Scan(&companyID, &employeeID, &policyID, &s.AccruedMinutes, &s.UsedMinutes, &s.HeldMinutes, &s.AvailableMinutes, &s.UpdatedAt, &s.Version); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, apperr.Internal("scan snapshot", err)
	}
	s.CompanyID, s.EmployeeID, s.PolicyID = domain.CompanyID(companyID), domain.EmployeeID(employeeID), domain.PolicyID(policyID)
	return &s, nil
}

// GetForUpdate takes the row lock with SELECT ... FOR UPDATE, materializing
// the snapshot from a full ledger replay on first access (spec §4.5).
func (r snapshotRepo) GetForUpdate(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID) (*domain.BalanceSnapshot, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+snapshotCols+` FROM balance_snapshots WHERE company_id=$1 AND employee_id=$2 AND policy_id=$3 FOR UPDATE`,
		uuid.UUID(company), uuid.UUID(employee), uuid.UUID(policy))
	snap, err := scanSnapshot(row)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		return snap, nil
	}
	entries, err := ledgerRepo(r).EntriesFor(ctx, company, employee, policy)
	if err != nil {
		return nil, err
	}
	materialized := domain.NewSnapshotFromLedger(company, employee, policy, entries, time.Now().UTC())
	if err := r.insertLocked(ctx, materialized); err != nil {
		return nil, err
	}
	return &materialized, nil
}

func (r snapshotRepo) insertLocked(ctx context.Context, s domain.BalanceSnapshot) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO balance_snapshots (`+snapshotCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (company_id, employee_id, policy_id) DO NOTHING`,
		uuid.UUID(s.CompanyID), uuid.UUID(s.EmployeeID), uuid.UUID(s.PolicyID), s.AccruedMinutes, s.UsedMinutes, s.HeldMinutes, s.AvailableMinutes, s.UpdatedAt, s.Version)
	if err != nil {
		return apperr.Internal("materialize snapshot", err)
	}
	return nil
}

func (r snapshotRepo) Save(ctx context.Context, s domain.BalanceSnapshot) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO balance_snapshots (`+snapshotCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (company_id, employee_id, policy_id) DO UPDATE SET
			accrued_minutes=EXCLUDED.accrued_minutes, used_minutes=EXCLUDED.used_minutes, held_minutes=EXCLUDED.held_minutes,
			available_minutes=EXCLUDED.available_minutes, updated_at=EXCLUDED.updated_at, version=EXCLUDED.version`,
		uuid.UUID(s.CompanyID), uuid.UUID(s.EmployeeID), uuid.UUID(s.PolicyID), s.AccruedMinutes, s.UsedMinutes, s.HeldMinutes, s.AvailableMinutes, s.UpdatedAt, s.Version)
	if err != nil {
		return apperr.Internal("save snapshot", err)
	}
	return nil
}

func (r snapshotRepo) Get(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID) (*domain.BalanceSnapshot, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+snapshotCols+` FROM balance_snapshots WHERE company_id=$1 AND employee_id=$2 AND policy_id=$3`,
		uuid.UUID(company), uuid.UUID(employee), uuid.UUID(policy))
	return scanSnapshot(row)
}

func (r snapshotRepo) ListForEmployee(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID) ([]domain.BalanceSnapshot, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+snapshotCols+` FROM balance_snapshots WHERE company_id=$1 AND employee_id=$2`, uuid.UUID(company), uuid.UUID(employee))
	if err != nil {
		return nil, apperr.Internal("list snapshots for employee", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func scanSnapshots(rows pgx.Rows) ([]domain.BalanceSnapshot, error) {
	var out []domain.BalanceSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, rows.Err()
}

func (r snapshotRepo) ListForCompany(ctx context.Context, company domain.CompanyID, offset, limit int) ([]domain.BalanceSnapshot, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+snapshotCols+` FROM balance_snapshots WHERE company_id=$1 ORDER BY employee_id, policy_id OFFSET $2 LIMIT $3`, uuid.UUID(company), offset, limit)
	if err != nil {
		return nil, apperr.Internal("list snapshots for company", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// ---- holidays ----

type holidayRepo struct{ tx pgx.Tx }

func (r holidayRepo) Create(ctx context.Context, h domain.CompanyHoliday) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO company_holidays (id, company_id, date, name) VALUES ($1,$2,$3,$4)`,
		uuid.UUID(h.ID), uuid.UUID(h.CompanyID), cd(h.Date), h.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("a holiday already exists on this date")
		}
		return apperr.Internal("insert holiday", err)
	}
	return nil
}

func (r holidayRepo) Delete(ctx context.Context, company domain.CompanyID, id domain.HolidayID) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM company_holidays WHERE company_id=$1 AND id=$2`, uuid.UUID(company), uuid.UUID(id))
	if err != nil {
		return apperr.Internal("delete holiday", err)
	}
	return nil
}

func (r holidayRepo) List(ctx context.Context, company domain.CompanyID) ([]domain.CompanyHoliday, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, company_id, date, name FROM company_holidays WHERE company_id=$1 ORDER BY date`, uuid.UUID(company))
	if err != nil {
		return nil, apperr.Internal("list holidays", err)
	}
	defer rows.Close()
	var out []domain.CompanyHoliday
	for rows.Next() {
		var h domain.CompanyHoliday
		var id, companyID uuid.UUID
		var date time.Time
		if err := rows.Scan(&id, &companyID, &date, &h.Name); err != nil {
			return nil, apperr.Internal("scan holiday", err)
		}
		h.ID, h.CompanyID, h.Date = domain.HolidayID(id), domain.CompanyID(companyID), fromDate(date)
		out = append(out, h)
	}
	return out, rows.Err()
}

// HolidaysBetween has no ctx parameter (it matches duration.HolidayLookup),
// so it queries through the caller's transaction with context.Background();
// cancelling the caller's ctx does not cancel this query.
func (r holidayRepo) HolidaysBetween(companyID domain.CompanyID, from, to domain.CivilDate) (map[domain.CivilDate]bool, error) {
	ctx := context.Background()
	rows, err := r.tx.Query(ctx, `SELECT date FROM company_holidays WHERE company_id=$1 AND date>=$2 AND date<=$3`, uuid.UUID(companyID), cd(from), cd(to))
	if err != nil {
		return nil, apperr.Internal("list holidays between", err)
	}
	defer rows.Close()
	out := make(map[domain.CivilDate]bool)
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, apperr.Internal("scan holiday date", err)
		}
		out[fromDate(date)] = true
	}
	return out, rows.Err()
}

// ---- audit ----

type auditRepo struct{ tx pgx.Tx }

func (r auditRepo) Append(ctx context.Context, a domain.AuditLog) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO audit_log (id, company_id, actor_id, entity_type, entity_id, action, before_json, after_json, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		uuid.UUID(a.ID), uuid.UUID(a.CompanyID), uuid.UUID(a.ActorID), a.EntityType, a.EntityID, string(a.Action), marshalJSON(a.Before), marshalJSON(a.After), a.CreatedAt)
	if err != nil {
		return apperr.Internal("append audit log", err)
	}
	return nil
}

func (r auditRepo) List(ctx context.Context, f store.AuditFilter) ([]domain.AuditLog, error) {
	query := `SELECT id, company_id, actor_id, entity_type, entity_id, action, before_json, after_json, created_at FROM audit_log WHERE company_id=$1`
	args := []any{uuid.UUID(f.CompanyID)}
	if f.EntityType != nil {
		args = append(args, *f.EntityType)
		query += andEq("entity_type", len(args))
	}
	if f.Action != nil {
		args = append(args, string(*f.Action))
		query += andEq("action", len(args))
	}
	if f.ActorID != nil {
		args = append(args, uuid.UUID(*f.ActorID))
		query += andEq("actor_id", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += " AND created_at >= $" + strconv.Itoa(len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += " AND created_at < $" + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, f.Offset, limit)
	query += fmtOffsetLimit(len(args) - 1)
	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("list audit log", err)
	}
	defer rows.Close()
	var out []domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		var id, companyID, actorID uuid.UUID
		var action string
		var before, after []byte
		if err := rows.Scan(&id, &companyID, &actorID, &a.EntityType, &a.EntityID, &action, &before, &after, &a.CreatedAt); err != nil {
			return nil, apperr.Internal("scan audit log row", err)
		}
		a.ID, a.CompanyID, a.ActorID, a.Action = domain.AuditLogID(id), domain.CompanyID(companyID), domain.EmployeeID(actorID), domain.AuditAction(action)
		if len(before) > 0 {
			_ = json.Unmarshal(before, &a.Before)
		}
		if len(after) > 0 {
			_ = json.Unmarshal(after, &a.After)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
