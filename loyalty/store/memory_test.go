package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loyalty-engine/loyalty"
	"github.com/warp/loyalty-engine/loyalty/store"
)

func earn(id string, user loyalty.UserID, delta int64) loyalty.Transaction {
	return loyalty.Transaction{
		ID:        loyalty.TransactionID(id),
		UserID:    user,
		Delta:     delta,
		Kind:      loyalty.KindEarn,
		Source:    loyalty.SourcePurchase,
		CreatedAt: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemory_PagingNewestFirst(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	for i, delta := range []int64{10, 20, 30, 40, 50} {
		require.NoError(t, m.AppendTransaction(ctx, earn(string(rune('a'+i)), "u1", delta)))
	}

	page, err := m.TransactionsByUser(ctx, "u1", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(50), page[0].Delta)
	assert.Equal(t, int64(40), page[1].Delta)

	page, err = m.TransactionsByUser(ctx, "u1", 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(10), page[0].Delta)

	page, err = m.TransactionsByUser(ctx, "u1", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemory_ReplayOldestFirst(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.AppendTransaction(ctx, earn("a", "u1", 10)))
	require.NoError(t, m.AppendTransaction(ctx, earn("b", "u1", 20)))

	txs, err := m.TransactionsForReplay(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(10), txs[0].Delta)
}

func TestMemory_ProfileVersionCAS(t *testing.T) {
	// GIVEN: A profile saved at version 1
	// WHEN: Saving version 3 (skipping 2) or re-saving version 1
	// THEN: Both fail with ErrConflict

	m := store.NewMemory()
	ctx := context.Background()

	p := loyalty.NewProfile("u1", time.Now())
	p.Version = 1
	require.NoError(t, m.SaveProfile(ctx, p))

	p.Version = 3
	assert.ErrorIs(t, m.SaveProfile(ctx, p), loyalty.ErrConflict)

	p.Version = 1
	assert.ErrorIs(t, m.SaveProfile(ctx, p), loyalty.ErrConflict)

	p.Version = 2
	assert.NoError(t, m.SaveProfile(ctx, p))
}

func TestMemory_FirstSaveMustBeVersionOne(t *testing.T) {
	m := store.NewMemory()

	p := loyalty.NewProfile("u1", time.Now())
	p.Version = 2
	assert.ErrorIs(t, m.SaveProfile(context.Background(), p), loyalty.ErrConflict)
}

func TestMemory_GetProfileAbsent(t *testing.T) {
	m := store.NewMemory()

	p, err := m.GetProfile(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMemory_Users(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	for _, id := range []loyalty.UserID{"u2", "u1"} {
		p := loyalty.NewProfile(id, time.Now())
		p.Version = 1
		require.NoError(t, m.SaveProfile(ctx, p))
	}

	users, err := m.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []loyalty.UserID{"u1", "u2"}, users, "sorted for determinism")
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that appends and then fails
	// WHEN: WithTx returns the error
	// THEN: The append is rolled back

	tm := store.NewTxMemory()
	ctx := context.Background()

	boom := errors.New("boom")
	err := tm.WithTx(ctx, func(st loyalty.Store) error {
		if err := st.AppendTransaction(ctx, earn("a", "u1", 10)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	txs, err := tm.TransactionsForReplay(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestTxMemory_CommitOnSuccess(t *testing.T) {
	tm := store.NewTxMemory()
	ctx := context.Background()

	err := tm.WithTx(ctx, func(st loyalty.Store) error {
		if err := st.AppendTransaction(ctx, earn("a", "u1", 10)); err != nil {
			return err
		}
		p := loyalty.NewProfile("u1", time.Now())
		p.CurrentBalance = 10
		p.LifetimePoints = 10
		p.Version = 1
		return st.SaveProfile(ctx, p)
	})
	require.NoError(t, err)

	txs, err := tm.TransactionsForReplay(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	p, err := tm.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(10), p.CurrentBalance)
}
