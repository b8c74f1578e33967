package holidayservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/holidayservice"
	"github.com/dayledger/pto/internal/store/memstore"
)

func TestCreateListDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	svc := holidayservice.New(db, audit.New())
	company, actor := domain.NewCompanyID(), domain.NewEmployeeID()

	h, err := svc.Create(ctx, company, domain.NewCivilDate(2025, time.December, 25), "Christmas", actor)
	require.NoError(t, err)

	list, err := svc.List(ctx, company)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Christmas", list[0].Name)

	require.NoError(t, svc.Delete(ctx, company, h.ID, actor))

	list, err = svc.List(ctx, company)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestListIsScopedPerCompany(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	svc := holidayservice.New(db, audit.New())
	companyA, companyB, actor := domain.NewCompanyID(), domain.NewCompanyID(), domain.NewEmployeeID()

	_, err := svc.Create(ctx, companyA, domain.NewCivilDate(2025, time.July, 4), "Independence Day", actor)
	require.NoError(t, err)

	list, err := svc.List(ctx, companyB)
	require.NoError(t, err)
	require.Empty(t, list, "a holiday created for one company must not leak into another company's list")
}
