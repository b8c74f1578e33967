package directory

import (
	"context"
	"sync"

	"github.com/dayledger/pto/internal/domain"
)

// MemoryDirectory is an in-process EmployeeDirectory/CompanyDirectory used by
// the dev seed script (cmd/seed) and by tests. Grounded on the original's
// backend/app/services/employee.py and company.py, which are themselves thin
// CRUD stubs over a database table - here backed by a guarded map since the
// directories are explicitly out of scope as persisted entities (spec §1).
type MemoryDirectory struct {
	mu        sync.RWMutex
	employees map[domain.EmployeeID]*Employee
	companies map[domain.CompanyID]*Company
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		employees: make(map[domain.EmployeeID]*Employee),
		companies: make(map[domain.CompanyID]*Company),
	}
}

func (m *MemoryDirectory) PutEmployee(e *Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
}

func (m *MemoryDirectory) PutCompany(c *Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID] = c
}

func (m *MemoryDirectory) Get(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID) (*Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[employee]
	if !ok || e.CompanyID != company {
		return nil, nil
	}
	return e, nil
}

func (m *MemoryDirectory) List(ctx context.Context, company domain.CompanyID) ([]*Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Employee
	for _, e := range m.employees {
		if e.CompanyID == company {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryDirectory) GetCompany(ctx context.Context, company domain.CompanyID) (*Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.companies[company]
	if !ok {
		return nil, nil
	}
	return c, nil
}

// Companies adapts MemoryDirectory to the CompanyDirectory interface (whose
// Get takes only a company ID, unlike EmployeeDirectory.Get).
func (m *MemoryDirectory) Companies() CompanyDirectory { return memoryCompanies{m} }

type memoryCompanies struct{ d *MemoryDirectory }

func (c memoryCompanies) Get(ctx context.Context, company domain.CompanyID) (*Company, error) {
	return c.d.GetCompany(ctx, company)
}
