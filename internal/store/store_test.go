package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func strPtr(s string) *string { return &s }

func testDate(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func seedAccount(t *testing.T, st *Store, id, name string, balance int64) {
	t.Helper()
	require.NoError(t, st.Accounts.Insert(context.Background(), &models.Account{
		ID:      id,
		Name:    name,
		Balance: decimal.NewFromInt(balance),
	}))
}

func seedTransaction(t *testing.T, st *Store, tx *models.Transaction) {
	t.Helper()
	require.NoError(t, st.Transactions.Insert(context.Background(), tx))
}

func TestTransactionRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acc-1", "Checking", 100)

	original := &models.Transaction{
		ID:         "tx-1",
		AccountID:  "acc-1",
		Date:       testDate(15),
		Payee:      "Grocery Store",
		Amount:     decimal.RequireFromString("-42.17"),
		Kind:       models.KindStandard,
		CategoryID: strPtr("cat-food"),
	}
	seedTransaction(t, st, original)

	got, err := st.Transactions.Get(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.AccountID, got.AccountID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("-42.17")), "amount survived as %s", got.Amount)
	assert.Equal(t, "2024-03-15", got.Date.Format("2006-01-02"))
	assert.Equal(t, models.KindStandard, got.Kind)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, "cat-food", *got.CategoryID)
	assert.Nil(t, got.TransferID)
	assert.False(t, got.TransferInboxDismissed)
}

func TestTransactionGetMissing(t *testing.T) {
	st := openTestStore(t)

	got, err := st.Transactions.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransactionUpdateMissing(t *testing.T) {
	st := openTestStore(t)

	err := st.Transactions.Update(context.Background(), &models.Transaction{
		ID:        "nope",
		AccountID: "acc-1",
		Date:      testDate(1),
		Kind:      models.KindStandard,
	})
	assert.Error(t, err)
}

func TestGetByTransferID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acc-1", "Checking", 0)
	seedAccount(t, st, "acc-2", "Savings", 0)

	transferID := "tr-1"
	seedTransaction(t, st, &models.Transaction{
		ID: "tx-b", AccountID: "acc-2", Date: testDate(15),
		Amount: decimal.NewFromInt(50), Kind: models.KindTransfer, TransferID: &transferID,
	})
	seedTransaction(t, st, &models.Transaction{
		ID: "tx-a", AccountID: "acc-1", Date: testDate(15),
		Amount: decimal.NewFromInt(-50), Kind: models.KindTransfer, TransferID: &transferID,
	})

	legs, err := st.Transactions.GetByTransferID(ctx, transferID)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, "tx-a", legs[0].ID, "legs should come back in id order")
	assert.Equal(t, "tx-b", legs[1].ID)
}

func TestFindCounterpartsPredicate(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acc-1", "Checking", 0)
	seedAccount(t, st, "acc-2", "Savings", 0)
	seedAccount(t, st, "acc-3", "Brokerage", 0)

	linked := "tr-linked"
	rows := []*models.Transaction{
		// The expected counterpart.
		{ID: "tx-match", AccountID: "acc-2", Date: testDate(16), Amount: decimal.NewFromInt(50), Kind: models.KindTransfer},
		// Wrong amount.
		{ID: "tx-amount", AccountID: "acc-2", Date: testDate(16), Amount: decimal.RequireFromString("49.99"), Kind: models.KindTransfer},
		// Same account as the base.
		{ID: "tx-same-acc", AccountID: "acc-1", Date: testDate(16), Amount: decimal.NewFromInt(50), Kind: models.KindStandard},
		// Already linked.
		{ID: "tx-linked", AccountID: "acc-3", Date: testDate(16), Amount: decimal.NewFromInt(50), Kind: models.KindTransfer, TransferID: &linked},
		// Ignored.
		{ID: "tx-ignored", AccountID: "acc-3", Date: testDate(16), Amount: decimal.NewFromInt(50), Kind: models.KindIgnored},
		// Marked external.
		{ID: "tx-external", AccountID: "acc-3", Date: testDate(16), Amount: decimal.NewFromInt(50), Kind: models.KindTransfer, ExternalTransferLabel: strPtr("Payroll")},
		// Outside the window.
		{ID: "tx-far", AccountID: "acc-2", Date: testDate(1).AddDate(0, -2, 0), Amount: decimal.NewFromInt(50), Kind: models.KindTransfer},
	}
	for _, r := range rows {
		seedTransaction(t, st, r)
	}

	got, err := st.Transactions.FindCounterparts(ctx, CounterpartQuery{
		ExcludeAccountID: "acc-1",
		ExcludeID:        "tx-base",
		Amount:           decimal.NewFromInt(50),
		From:             testDate(8),
		To:               testDate(22),
		Limit:            100,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tx-match", got[0].ID)
}

func TestFindCounterpartsAllDatesAndLimit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acc-1", "Checking", 0)
	seedAccount(t, st, "acc-2", "Savings", 0)

	for i := 0; i < 5; i++ {
		seedTransaction(t, st, &models.Transaction{
			ID:        fmt.Sprintf("tx-%d", i),
			AccountID: "acc-2",
			Date:      testDate(1).AddDate(0, 0, i*40),
			Amount:    decimal.NewFromInt(50),
			Kind:      models.KindTransfer,
		})
	}

	got, err := st.Transactions.FindCounterparts(ctx, CounterpartQuery{
		ExcludeAccountID: "acc-1",
		ExcludeID:        "tx-base",
		Amount:           decimal.NewFromInt(50),
		AllDates:         true,
		Limit:            3,
	})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	// Ordered by date, so the earliest three.
	assert.Equal(t, "tx-0", got[0].ID)
	assert.Equal(t, "tx-2", got[2].ID)
}

func TestPendingReview(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acc-1", "Checking", 0)

	linked := "tr-1"
	seedTransaction(t, st, &models.Transaction{
		ID: "tx-pending", AccountID: "acc-1", Date: testDate(15),
		Amount: decimal.NewFromInt(-50), Kind: models.KindTransfer,
	})
	seedTransaction(t, st, &models.Transaction{
		ID: "tx-linked", AccountID: "acc-1", Date: testDate(15),
		Amount: decimal.NewFromInt(-60), Kind: models.KindTransfer, TransferID: &linked,
	})
	seedTransaction(t, st, &models.Transaction{
		ID: "tx-external", AccountID: "acc-1", Date: testDate(15),
		Amount: decimal.NewFromInt(-70), Kind: models.KindTransfer,
		ExternalTransferLabel: strPtr("Payroll"), TransferInboxDismissed: true,
	})
	seedTransaction(t, st, &models.Transaction{
		ID: "tx-standard", AccountID: "acc-1", Date: testDate(15),
		Amount: decimal.NewFromInt(-80), Kind: models.KindStandard,
	})

	pending, err := st.Transactions.PendingReview(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "tx-pending", pending[0].ID)
}

func TestAccountBalanceOperations(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acc-1", "Checking", 100)

	require.NoError(t, st.Accounts.AdjustBalance(ctx, "acc-1", decimal.RequireFromString("-25.50")))

	got, err := st.Accounts.Get(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("74.50")), "balance is %s", got.Balance)

	require.NoError(t, st.Accounts.UpdateBalance(ctx, "acc-1", decimal.Zero))
	got, err = st.Accounts.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())
}

func TestGetTrackingByName(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Accounts.Insert(ctx, &models.Account{
		ID: "acc-track", Name: "Holiday savings", Balance: decimal.Zero, IsTrackingOnly: true,
	}))
	require.NoError(t, st.Accounts.Insert(ctx, &models.Account{
		ID: "acc-normal", Name: "Everyday", Balance: decimal.Zero,
	}))

	got, err := st.Accounts.GetTrackingByName(ctx, "Holiday savings")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "acc-track", got.ID)
	assert.True(t, got.IsTrackingOnly)

	// A non-tracking account is never returned by name.
	got, err = st.Accounts.GetTrackingByName(ctx, "Everyday")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPatternUpsertRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	pair := models.NewPairKey("acc-1", "acc-2")
	p := &models.TransferPattern{
		Pair:            pair,
		AmountMin:       decimal.NewFromInt(25),
		AmountMax:       decimal.RequireFromString("120.50"),
		OccurrenceCount: 4,
		Confidence:      0.744,
		IsActive:        true,
	}
	p.DayOffsets[1] = 3
	p.DayOffsets[0] = 1

	require.NoError(t, st.Patterns.Upsert(ctx, p))

	got, err := st.Patterns.Get(ctx, pair)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pair, got.Pair)
	assert.Equal(t, 4, got.OccurrenceCount)
	assert.InDelta(t, 0.744, got.Confidence, 1e-9)
	assert.Equal(t, 3, got.DayOffsets[1])
	assert.True(t, got.AmountMax.Equal(decimal.RequireFromString("120.50")))

	// Upsert replaces in place.
	p.OccurrenceCount = 5
	require.NoError(t, st.Patterns.Upsert(ctx, p))
	got, err = st.Patterns.Get(ctx, pair)
	require.NoError(t, err)
	assert.Equal(t, 5, got.OccurrenceCount)
}

func TestListReliablePatterns(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Patterns.Upsert(ctx, &models.TransferPattern{
		Pair: models.NewPairKey("a", "b"), OccurrenceCount: 4, Confidence: 0.8, IsActive: true,
		AmountMin: decimal.Zero, AmountMax: decimal.Zero,
	}))
	require.NoError(t, st.Patterns.Upsert(ctx, &models.TransferPattern{
		Pair: models.NewPairKey("a", "c"), OccurrenceCount: 2, Confidence: 0.9, IsActive: true,
		AmountMin: decimal.Zero, AmountMax: decimal.Zero,
	}))
	require.NoError(t, st.Patterns.Upsert(ctx, &models.TransferPattern{
		Pair: models.NewPairKey("b", "c"), OccurrenceCount: 9, Confidence: 0.95, IsActive: false,
		AmountMin: decimal.Zero, AmountMax: decimal.Zero,
	}))

	reliable, err := st.Patterns.ListReliable(ctx)
	require.NoError(t, err)
	require.Len(t, reliable, 1)
	assert.Equal(t, models.NewPairKey("a", "b"), reliable[0].Pair)

	all, err := st.Patterns.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acc-1", "Checking", 100)

	err := st.WithTx(ctx, func(tx *Tx) error {
		if err := tx.Accounts.UpdateBalance(ctx, "acc-1", decimal.Zero); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	got, err := st.Accounts.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)), "rollback did not restore balance: %s", got.Balance)
}

func TestWithTxCommits(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acc-1", "Checking", 100)

	err := st.WithTx(ctx, func(tx *Tx) error {
		return tx.Accounts.UpdateBalance(ctx, "acc-1", decimal.NewFromInt(42))
	})
	require.NoError(t, err)

	got, err := st.Accounts.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(42)))
}
