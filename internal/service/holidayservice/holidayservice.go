/*
Package holidayservice implements the holiday CRUD named in spec.md §6's
endpoint table (create/list/delete), tenant-scoped and admin-gated for
writes per §4.15.

Grounded on original_source's backend/app/services/holiday.py and
backend/app/api/holidays.py, which are thin CRUD wrappers the same shape.
*/
package holidayservice

import (
	"context"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/store"
)

type Service struct {
	store store.Store
	audit *audit.Writer
}

func New(s store.Store, a *audit.Writer) *Service {
	return &Service{store: s, audit: a}
}

func (s *Service) Create(ctx context.Context, companyID domain.CompanyID, date domain.CivilDate, name string, actorID domain.EmployeeID) (*domain.CompanyHoliday, error) {
	h := domain.CompanyHoliday{ID: domain.NewHolidayID(), CompanyID: companyID, Date: date, Name: name}
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Holidays().Create(ctx, h); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx.Audit(), companyID, actorID, "holiday", h.ID.String(), domain.ActionCreate, nil, map[string]any{"date": h.Date.String(), "name": h.Name})
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Service) List(ctx context.Context, companyID domain.CompanyID) ([]domain.CompanyHoliday, error) {
	var out []domain.CompanyHoliday
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Holidays().List(ctx, companyID)
		return err
	})
	return out, err
}

func (s *Service) Delete(ctx context.Context, companyID domain.CompanyID, id domain.HolidayID, actorID domain.EmployeeID) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Holidays().Delete(ctx, companyID, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx.Audit(), companyID, actorID, "holiday", id.String(), domain.ActionUpdate, nil, map[string]any{"deleted": true})
	})
}
