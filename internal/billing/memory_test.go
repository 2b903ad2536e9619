package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
)

func TestMemoryAccountNumberIsUnique(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := NewAccount(uuid.New(), "BA-000001", uuid.New(), now)
	require.NoError(t, err)
	require.NoError(t, store.CreateAccount(ctx, first))

	second, err := NewAccount(uuid.New(), "ba-000001", uuid.New(), now)
	require.NoError(t, err)
	assert.ErrorIs(t, store.CreateAccount(ctx, second), sentinel.ErrAlreadyUsed)

	got, err := store.GetAccountByNumber(ctx, "BA-000001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = store.GetAccountByNumber(ctx, "BA-999999")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryOpenBillLookups(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	account, err := NewAccount(uuid.New(), "BA-000002", uuid.New(), now)
	require.NoError(t, err)
	require.NoError(t, store.CreateAccount(ctx, account))

	addBill := func(month string, status BillStatus) {
		bill, err := NewBill(uuid.New(), account.ID, month, 1500, nil, now)
		require.NoError(t, err)
		bill.Status = status
		require.NoError(t, store.CreateBill(ctx, bill))
	}
	// Inserted out of month order on purpose.
	addBill("2026-03", BillOverdue)
	addBill("2026-01", BillPaid)
	addBill("2026-02", BillPending)

	open, err := store.ListOpenBills(ctx, account.ID.String())
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "2026-02", open[0].BillMonth)
	assert.Equal(t, "2026-03", open[1].BillMonth)

	last, err := store.LastOpenBill(ctx, account.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "2026-03", last.BillMonth)
}

func TestMemoryLastOpenBillNotFoundWhenAllPaid(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	account, err := NewAccount(uuid.New(), "BA-000003", uuid.New(), now)
	require.NoError(t, err)
	require.NoError(t, store.CreateAccount(ctx, account))

	bill, err := NewBill(uuid.New(), account.ID, "2026-01", 900, nil, now)
	require.NoError(t, err)
	bill.Status = BillPaid
	require.NoError(t, store.CreateBill(ctx, bill))

	_, err = store.LastOpenBill(ctx, account.ID.String())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestNewBillValidation(t *testing.T) {
	now := time.Now().UTC()
	accountID := uuid.New()

	_, err := NewBill(uuid.New(), accountID, "2026-13", 100, nil, now)
	assert.Error(t, err)
	_, err = NewBill(uuid.New(), accountID, "202601", 100, nil, now)
	assert.Error(t, err)
	_, err = NewBill(uuid.New(), accountID, "2026-01", -1, nil, now)
	assert.Error(t, err)

	bill, err := NewBill(uuid.New(), accountID, "2026-01", 100, nil, now)
	require.NoError(t, err)
	assert.Equal(t, BillPending, bill.Status)
	assert.True(t, bill.Open())
}
