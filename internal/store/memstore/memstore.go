/*
Package memstore is an in-memory, mutex-guarded implementation of the
store.Store interfaces, grounded on the teacher's generic/store/memory.go:
one sync.Mutex protecting the whole database and explicit idempotency
maps rather than a real unique index.

RunInTx holds the single write lock for the whole transaction, which is a
stronger serialization than the real Postgres store's per-snapshot row
lock, but is the correct in-memory analogue of "a single mutable resource
serializes concurrent writers" (spec §5) without needing a lock-manager.
On fn returning an error or panicking, all mutations performed through the
Tx are rolled back by restoring a copy of the tables taken when RunInTx
starts.
*/
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dayledger/pto/internal/apperr"
	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/store"
)

type sourceKey struct {
	Company   domain.CompanyID
	SourceType domain.SourceType
	SourceID  string
	EntryType domain.EntryType
}

type triple struct {
	Company  domain.CompanyID
	Employee domain.EmployeeID
	Policy   domain.PolicyID
}

// DB is the whole in-memory database. Memstore is intentionally a single
// flat struct (not split per-table like the postgres package) because
// there is no SQL dialect to keep separate - it mirrors the teacher's single
// Memory struct in generic/store/memory.go.
type DB struct {
	mu sync.Mutex

	policies       map[domain.PolicyID]domain.Policy
	policyByKey    map[[2]string]domain.PolicyID // [companyID, key] -> policyID
	versions       map[domain.PolicyID][]domain.PolicyVersion

	assignments map[domain.AssignmentID]domain.Assignment

	requests           map[domain.RequestID]domain.Request
	requestByIdempotency map[[3]string]domain.RequestID // company, employee, key

	ledger     map[triple][]domain.LedgerEntry
	bySource   map[sourceKey]domain.LedgerEntryID

	snapshots map[triple]domain.BalanceSnapshot

	holidays map[domain.HolidayID]domain.CompanyHoliday

	audit []domain.AuditLog
}

func New() *DB {
	return &DB{
		policies:             make(map[domain.PolicyID]domain.Policy),
		policyByKey:          make(map[[2]string]domain.PolicyID),
		versions:             make(map[domain.PolicyID][]domain.PolicyVersion),
		assignments:          make(map[domain.AssignmentID]domain.Assignment),
		requests:             make(map[domain.RequestID]domain.Request),
		requestByIdempotency: make(map[[3]string]domain.RequestID),
		ledger:               make(map[triple][]domain.LedgerEntry),
		bySource:             make(map[sourceKey]domain.LedgerEntryID),
		snapshots:            make(map[triple]domain.BalanceSnapshot),
		holidays:             make(map[domain.HolidayID]domain.CompanyHoliday),
	}
}

// RunInTx takes the single global lock, snapshots mutable tables, runs fn,
// and restores the snapshot if fn returns an error or panics.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	backup := db.clone()
	tx := &memTx{db: db}
	committed := false
	defer func() {
		if !committed {
			db.restore(backup)
		}
	}()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	committed = true
	return nil
}

type dbSnapshot struct {
	policies             map[domain.PolicyID]domain.Policy
	policyByKey          map[[2]string]domain.PolicyID
	versions             map[domain.PolicyID][]domain.PolicyVersion
	assignments          map[domain.AssignmentID]domain.Assignment
	requests             map[domain.RequestID]domain.Request
	requestByIdempotency map[[3]string]domain.RequestID
	ledger               map[triple][]domain.LedgerEntry
	bySource             map[sourceKey]domain.LedgerEntryID
	snapshots            map[triple]domain.BalanceSnapshot
	holidays             map[domain.HolidayID]domain.CompanyHoliday
	audit                []domain.AuditLog
}

func (db *DB) clone() dbSnapshot {
	s := dbSnapshot{
		policies:             make(map[domain.PolicyID]domain.Policy, len(db.policies)),
		policyByKey:          make(map[[2]string]domain.PolicyID, len(db.policyByKey)),
		versions:             make(map[domain.PolicyID][]domain.PolicyVersion, len(db.versions)),
		assignments:          make(map[domain.AssignmentID]domain.Assignment, len(db.assignments)),
		requests:             make(map[domain.RequestID]domain.Request, len(db.requests)),
		requestByIdempotency: make(map[[3]string]domain.RequestID, len(db.requestByIdempotency)),
		ledger:               make(map[triple][]domain.LedgerEntry, len(db.ledger)),
		bySource:             make(map[sourceKey]domain.LedgerEntryID, len(db.bySource)),
		snapshots:            make(map[triple]domain.BalanceSnapshot, len(db.snapshots)),
		holidays:             make(map[domain.HolidayID]domain.CompanyHoliday, len(db.holidays)),
		audit:                append([]domain.AuditLog{}, db.audit...),
	}
	for k, v := range db.policies {
		s.policies[k] = v
	}
	for k, v := range db.policyByKey {
		s.policyByKey[k] = v
	}
	for k, v := range db.versions {
		s.versions[k] = append([]domain.PolicyVersion{}, v...)
	}
	for k, v := range db.assignments {
		s.assignments[k] = v
	}
	for k, v := range db.requests {
		s.requests[k] = v
	}
	for k, v := range db.requestByIdempotency {
		s.requestByIdempotency[k] = v
	}
	for k, v := range db.ledger {
		s.ledger[k] = append([]domain.LedgerEntry{}, v...)
	}
	for k, v := range db.bySource {
		s.bySource[k] = v
	}
	for k, v := range db.snapshots {
		s.snapshots[k] = v
	}
	for k, v := range db.holidays {
		s.holidays[k] = v
	}
	return s
}

func (db *DB) restore(s dbSnapshot) {
	db.policies = s.policies
	db.policyByKey = s.policyByKey
	db.versions = s.versions
	db.assignments = s.assignments
	db.requests = s.requests
	db.requestByIdempotency = s.requestByIdempotency
	db.ledger = s.ledger
	db.bySource = s.bySource
	db.snapshots = s.snapshots
	db.holidays = s.holidays
	db.audit = s.audit
}

// memTx is a thin view over DB; since RunInTx holds the lock for its whole
// duration, savepoints for ledger posting are just "catch the duplicate and
// keep going" rather than a real nested transaction.
type memTx struct{ db *DB }

func (t *memTx) Policies() store.PolicyStore       { return policyRepo{t.db} }
func (t *memTx) Assignments() store.AssignmentStore { return assignmentRepo{t.db} }
func (t *memTx) Requests() store.RequestStore       { return requestRepo{t.db} }
func (t *memTx) Ledger() store.LedgerStore          { return ledgerRepo{t.db} }
func (t *memTx) Snapshots() store.SnapshotStore     { return snapshotRepo{t.db} }
func (t *memTx) Holidays() store.HolidayStore       { return holidayRepo{t.db} }
func (t *memTx) Audit() store.AuditStore            { return auditRepo{t.db} }

// ---------------------------------------------------------------- policies

type policyRepo struct{ db *DB }

func (r policyRepo) Create(ctx context.Context, p domain.Policy, v domain.PolicyVersion) error {
	k := [2]string{p.CompanyID.String(), p.Key}
	if _, exists := r.db.policyByKey[k]; exists {
		return apperr.Conflict("policy key already exists")
	}
	r.db.policies[p.ID] = p
	r.db.policyByKey[k] = p.ID
	r.db.versions[p.ID] = []domain.PolicyVersion{v}
	return nil
}

func (r policyRepo) GetByID(ctx context.Context, company domain.CompanyID, id domain.PolicyID) (*domain.Policy, error) {
	p, ok := r.db.policies[id]
	if !ok || p.CompanyID != company {
		return nil, nil
	}
	return &p, nil
}

func (r policyRepo) GetByKey(ctx context.Context, company domain.CompanyID, key string) (*domain.Policy, error) {
	id, ok := r.db.policyByKey[[2]string{company.String(), key}]
	if !ok {
		return nil, nil
	}
	p := r.db.policies[id]
	return &p, nil
}

func (r policyRepo) ListByCompany(ctx context.Context, company domain.CompanyID, offset, limit int) ([]domain.Policy, error) {
	var all []domain.Policy
	for _, p := range r.db.policies {
		if p.CompanyID == company {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginatePolicies(all, offset, limit), nil
}

func paginatePolicies(all []domain.Policy, offset, limit int) []domain.Policy {
	if offset >= len(all) {
		return nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

func (r policyRepo) EndDateAndInsertVersion(ctx context.Context, policyID domain.PolicyID, currentVersionID domain.PolicyVersionID, newEffectiveTo domain.CivilDate, next domain.PolicyVersion) error {
	versions := r.db.versions[policyID]
	found := false
	for i, v := range versions {
		if v.ID == currentVersionID {
			versions[i].EffectiveTo = &newEffectiveTo
			found = true
			break
		}
	}
	if !found {
		return apperr.NotFound("current policy version not found")
	}
	r.db.versions[policyID] = append(versions, next)
	return nil
}

func (r policyRepo) CurrentVersion(ctx context.Context, policyID domain.PolicyID) (*domain.PolicyVersion, error) {
	for _, v := range r.db.versions[policyID] {
		if v.IsCurrent() {
			vv := v
			return &vv, nil
		}
	}
	return nil, nil
}

func (r policyRepo) VersionEffectiveOn(ctx context.Context, policyID domain.PolicyID, d domain.CivilDate) (*domain.PolicyVersion, error) {
	for _, v := range r.db.versions[policyID] {
		if v.CoversDate(d) {
			vv := v
			return &vv, nil
		}
	}
	return nil, nil
}

func (r policyRepo) VersionChain(ctx context.Context, policyID domain.PolicyID) ([]domain.PolicyVersion, error) {
	out := append([]domain.PolicyVersion{}, r.db.versions[policyID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// ------------------------------------------------------------- assignments

type assignmentRepo struct{ db *DB }

func (r assignmentRepo) Create(ctx context.Context, a domain.Assignment) error {
	for _, existing := range r.db.assignments {
		if existing.CompanyID == a.CompanyID && existing.EmployeeID == a.EmployeeID && existing.PolicyID == a.PolicyID {
			if existing.EffectiveFrom == a.EffectiveFrom {
				return apperr.Conflict("assignment already exists for this effective_from")
			}
			if existing.Overlaps(a) {
				return apperr.Conflict("assignment overlaps an existing assignment")
			}
		}
	}
	r.db.assignments[a.ID] = a
	return nil
}

func (r assignmentRepo) Get(ctx context.Context, company domain.CompanyID, id domain.AssignmentID) (*domain.Assignment, error) {
	a, ok := r.db.assignments[id]
	if !ok || a.CompanyID != company {
		return nil, nil
	}
	return &a, nil
}

func (r assignmentRepo) EndDate(ctx context.Context, id domain.AssignmentID, effectiveTo domain.CivilDate) error {
	a, ok := r.db.assignments[id]
	if !ok {
		return apperr.NotFound("assignment not found")
	}
	a.EffectiveTo = &effectiveTo
	r.db.assignments[id] = a
	return nil
}

func (r assignmentRepo) ActiveOverlapping(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID, from domain.CivilDate, to *domain.CivilDate) ([]domain.Assignment, error) {
	candidate := domain.Assignment{CompanyID: company, EmployeeID: employee, PolicyID: policy, EffectiveFrom: from, EffectiveTo: to}
	var out []domain.Assignment
	for _, a := range r.db.assignments {
		if a.CompanyID == company && a.EmployeeID == employee && a.PolicyID == policy && a.Overlaps(candidate) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r assignmentRepo) ByPolicy(ctx context.Context, company domain.CompanyID, policy domain.PolicyID) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range r.db.assignments {
		if a.CompanyID == company && a.PolicyID == policy {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r assignmentRepo) ByEmployee(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range r.db.assignments {
		if a.CompanyID == company && a.EmployeeID == employee {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r assignmentRepo) ActiveOn(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID, d domain.CivilDate) (*domain.Assignment, error) {
	for _, a := range r.db.assignments {
		if a.CompanyID == company && a.EmployeeID == employee && a.PolicyID == policy && a.ActiveOn(d) {
			aa := a
			return &aa, nil
		}
	}
	return nil, nil
}

func (r assignmentRepo) AllActiveOn(ctx context.Context, company *domain.CompanyID, d domain.CivilDate) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range r.db.assignments {
		if company != nil && a.CompanyID != *company {
			continue
		}
		if a.ActiveOn(d) {
			out = append(out, a)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------- requests

type requestRepo struct{ db *DB }

func (r requestRepo) Create(ctx context.Context, req domain.Request) (*domain.Request, bool, error) {
	if req.IdempotencyKey != "" {
		k := [3]string{req.CompanyID.String(), req.EmployeeID.String(), req.IdempotencyKey}
		if existingID, ok := r.db.requestByIdempotency[k]; ok {
			existing := r.db.requests[existingID]
			return &existing, false, nil
		}
		r.db.requestByIdempotency[k] = req.ID
	}
	r.db.requests[req.ID] = req
	out := req
	return &out, true, nil
}

func (r requestRepo) Get(ctx context.Context, company domain.CompanyID, id domain.RequestID) (*domain.Request, error) {
	req, ok := r.db.requests[id]
	if !ok || req.CompanyID != company {
		return nil, nil
	}
	return &req, nil
}

func (r requestRepo) UpdateStatus(ctx context.Context, req domain.Request) error {
	if _, ok := r.db.requests[req.ID]; !ok {
		return apperr.NotFound("request not found")
	}
	r.db.requests[req.ID] = req
	return nil
}

func (r requestRepo) OverlappingActive(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID, start, end time.Time) ([]domain.Request, error) {
	var out []domain.Request
	for _, req := range r.db.requests {
		if req.CompanyID != company || req.EmployeeID != employee || req.PolicyID != policy {
			continue
		}
		if req.Status != domain.RequestSubmitted && req.Status != domain.RequestApproved {
			continue
		}
		if req.OverlapsWindow(start, end) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r requestRepo) List(ctx context.Context, f store.RequestFilter) ([]domain.Request, error) {
	var all []domain.Request
	for _, req := range r.db.requests {
		if req.CompanyID != f.CompanyID {
			continue
		}
		if f.EmployeeID != nil && req.EmployeeID != *f.EmployeeID {
			continue
		}
		if f.PolicyID != nil && req.PolicyID != *f.PolicyID {
			continue
		}
		if f.Status != nil && req.Status != *f.Status {
			continue
		}
		all = append(all, req)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginateRequests(all, f.Offset, f.Limit), nil
}

func paginateRequests(all []domain.Request, offset, limit int) []domain.Request {
	if offset >= len(all) {
		return nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

// ------------------------------------------------------------------ ledger

type ledgerRepo struct{ db *DB }

func (r ledgerRepo) Post(ctx context.Context, e domain.LedgerEntry) (bool, error) {
	sk := sourceKey{Company: e.CompanyID, SourceType: e.SourceType, SourceID: e.SourceID, EntryType: e.EntryType}
	if _, exists := r.db.bySource[sk]; exists {
		return false, nil // savepoint-equivalent: skip, do not abort the transaction
	}
	t := triple{Company: e.CompanyID, Employee: e.EmployeeID, Policy: e.PolicyID}
	r.db.ledger[t] = append(r.db.ledger[t], e)
	r.db.bySource[sk] = e.ID
	return true, nil
}

func (r ledgerRepo) FindBySource(ctx context.Context, company domain.CompanyID, sourceType domain.SourceType, sourceID string, entryType domain.EntryType) (*domain.LedgerEntry, error) {
	sk := sourceKey{Company: company, SourceType: sourceType, SourceID: sourceID, EntryType: entryType}
	id, ok := r.db.bySource[sk]
	if !ok {
		return nil, nil
	}
	for _, entries := range r.db.ledger {
		for _, e := range entries {
			if e.ID == id {
				ee := e
				return &ee, nil
			}
		}
	}
	return nil, nil
}

func (r ledgerRepo) EntriesFor(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID) ([]domain.LedgerEntry, error) {
	t := triple{Company: company, Employee: employee, Policy: policy}
	return append([]domain.LedgerEntry{}, r.db.ledger[t]...), nil
}

func (r ledgerRepo) EntriesBySource(ctx context.Context, company domain.CompanyID, sourceID string) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	for _, entries := range r.db.ledger {
		for _, e := range entries {
			if e.CompanyID == company && e.SourceID == sourceID {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (r ledgerRepo) List(ctx context.Context, f store.LedgerListFilter) ([]domain.LedgerEntry, error) {
	var all []domain.LedgerEntry
	for _, entries := range r.db.ledger {
		for _, e := range entries {
			if e.CompanyID != f.CompanyID {
				continue
			}
			if f.EmployeeID != nil && e.EmployeeID != *f.EmployeeID {
				continue
			}
			if f.PolicyID != nil && e.PolicyID != *f.PolicyID {
				continue
			}
			if f.From != nil && e.EffectiveAt.Before(*f.From) {
				continue
			}
			if f.To != nil && e.EffectiveAt.After(*f.To) {
				continue
			}
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].EffectiveAt.Equal(all[j].EffectiveAt) {
			return all[i].EffectiveAt.After(all[j].EffectiveAt)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginateLedger(all, f.Offset, f.Limit), nil
}

func paginateLedger(all []domain.LedgerEntry, offset, limit int) []domain.LedgerEntry {
	if offset >= len(all) {
		return nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

// ---------------------------------------------------------------- snapshot

type snapshotRepo struct{ db *DB }

func (r snapshotRepo) GetForUpdate(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID) (*domain.BalanceSnapshot, error) {
	t := triple{Company: company, Employee: employee, Policy: policy}
	if s, ok := r.db.snapshots[t]; ok {
		ss := s
		return &ss, nil
	}
	entries := r.db.ledger[t]
	s := domain.NewSnapshotFromLedger(company, employee, policy, entries, time.Now().UTC())
	r.db.snapshots[t] = s
	return &s, nil
}

func (r snapshotRepo) Save(ctx context.Context, s domain.BalanceSnapshot) error {
	t := triple{Company: s.CompanyID, Employee: s.EmployeeID, Policy: s.PolicyID}
	r.db.snapshots[t] = s
	return nil
}

func (r snapshotRepo) Get(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID) (*domain.BalanceSnapshot, error) {
	t := triple{Company: company, Employee: employee, Policy: policy}
	s, ok := r.db.snapshots[t]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r snapshotRepo) ListForEmployee(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID) ([]domain.BalanceSnapshot, error) {
	var out []domain.BalanceSnapshot
	for t, s := range r.db.snapshots {
		if t.Company == company && t.Employee == employee {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r snapshotRepo) ListForCompany(ctx context.Context, company domain.CompanyID, offset, limit int) ([]domain.BalanceSnapshot, error) {
	var all []domain.BalanceSnapshot
	for t, s := range r.db.snapshots {
		if t.Company == company {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EmployeeID.String() < all[j].EmployeeID.String() })
	if offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// --------------------------------------------------------------- holidays

type holidayRepo struct{ db *DB }

func (r holidayRepo) Create(ctx context.Context, h domain.CompanyHoliday) error {
	for _, existing := range r.db.holidays {
		if existing.CompanyID == h.CompanyID && existing.Date == h.Date {
			return apperr.Conflict("holiday already exists for this date")
		}
	}
	r.db.holidays[h.ID] = h
	return nil
}

func (r holidayRepo) Delete(ctx context.Context, company domain.CompanyID, id domain.HolidayID) error {
	h, ok := r.db.holidays[id]
	if !ok || h.CompanyID != company {
		return apperr.NotFound("holiday not found")
	}
	delete(r.db.holidays, id)
	return nil
}

func (r holidayRepo) List(ctx context.Context, company domain.CompanyID) ([]domain.CompanyHoliday, error) {
	var out []domain.CompanyHoliday
	for _, h := range r.db.holidays {
		if h.CompanyID == company {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r holidayRepo) HolidaysBetween(company domain.CompanyID, from, to domain.CivilDate) (map[domain.CivilDate]bool, error) {
	out := map[domain.CivilDate]bool{}
	for _, h := range r.db.holidays {
		if h.CompanyID == company && !h.Date.Before(from) && !h.Date.After(to) {
			out[h.Date] = true
		}
	}
	return out, nil
}

// ------------------------------------------------------------------ audit

type auditRepo struct{ db *DB }

func (r auditRepo) Append(ctx context.Context, a domain.AuditLog) error {
	r.db.audit = append(r.db.audit, a)
	return nil
}

func (r auditRepo) List(ctx context.Context, f store.AuditFilter) ([]domain.AuditLog, error) {
	var all []domain.AuditLog
	for _, a := range r.db.audit {
		if a.CompanyID != f.CompanyID {
			continue
		}
		if f.EntityType != nil && a.EntityType != *f.EntityType {
			continue
		}
		if f.Action != nil && a.Action != *f.Action {
			continue
		}
		if f.ActorID != nil && a.ActorID != *f.ActorID {
			continue
		}
		if f.From != nil && a.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && a.CreatedAt.After(*f.To) {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if f.Offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return all[f.Offset:end], nil
}
