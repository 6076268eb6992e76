package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loyalty-engine/loyalty"
	"github.com/warp/loyalty-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testTx(id string, user loyalty.UserID, delta int64, kind loyalty.TransactionKind, at time.Time) loyalty.Transaction {
	return loyalty.Transaction{
		ID:          loyalty.TransactionID(id),
		UserID:      user,
		Delta:       delta,
		Kind:        kind,
		Source:      loyalty.SourcePurchase,
		Description: "test",
		CreatedBy:   string(user),
		CreatedAt:   at,
	}
}

func TestSQLite_AppendAndReadBack(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2025, time.June, 1, 10, 30, 0, 123456000, time.UTC)
	in := testTx("tx-1", "u1", 150, loyalty.KindEarn, at)
	in.ReferenceID = "order-9"
	require.NoError(t, st.AppendTransaction(ctx, in))

	txs, err := st.TransactionsForReplay(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 1)

	got := txs[0]
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.Delta, got.Delta)
	assert.Equal(t, in.Kind, got.Kind)
	assert.Equal(t, in.Source, got.Source)
	assert.Equal(t, "order-9", got.ReferenceID)
	assert.True(t, at.Equal(got.CreatedAt), "timestamps survive the round trip")
}

func TestSQLite_EmptyOptionalFields(t *testing.T) {
	// Empty description/reference/creator are stored as NULLs and come back
	// as empty strings.
	st := newTestStore(t)
	ctx := context.Background()

	in := testTx("tx-1", "u1", 10, loyalty.KindEarn, time.Now().UTC())
	in.Description = ""
	in.CreatedBy = ""
	require.NoError(t, st.AppendTransaction(ctx, in))

	txs, err := st.TransactionsForReplay(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "", txs[0].Description)
	assert.Equal(t, "", txs[0].ReferenceID)
	assert.Equal(t, "", txs[0].CreatedBy)
}

func TestSQLite_HistoryOrderAndPaging(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tx := testTx(fmt.Sprintf("tx-%d", i), "u1", int64(10*(i+1)), loyalty.KindEarn, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, st.AppendTransaction(ctx, tx))
	}

	page, err := st.TransactionsByUser(ctx, "u1", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(50), page[0].Delta, "newest first")
	assert.Equal(t, int64(40), page[1].Delta)

	page, err = st.TransactionsByUser(ctx, "u1", 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(10), page[0].Delta)

	replay, err := st.TransactionsForReplay(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, replay, 5)
	assert.Equal(t, int64(10), replay[0].Delta, "oldest first")
}

func TestSQLite_UsersIsolated(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendTransaction(ctx, testTx("tx-1", "u1", 10, loyalty.KindEarn, time.Now().UTC())))
	require.NoError(t, st.AppendTransaction(ctx, testTx("tx-2", "u2", 20, loyalty.KindEarn, time.Now().UTC())))

	txs, err := st.TransactionsForReplay(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, loyalty.UserID("u1"), txs[0].UserID)
}

func TestSQLite_ProfileRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	absent, err := st.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, absent)

	p := loyalty.NewProfile("u1", time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	p.Tier = loyalty.TierSilver
	p.LifetimePoints = 1200
	p.CurrentBalance = 800
	p.Version = 1
	require.NoError(t, st.SaveProfile(ctx, p))

	got, err := st.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, loyalty.TierSilver, got.Tier)
	assert.Equal(t, int64(1200), got.LifetimePoints)
	assert.Equal(t, int64(800), got.CurrentBalance)
	assert.Equal(t, int64(1), got.Version)
}

func TestSQLite_ProfileVersionCAS(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := loyalty.NewProfile("u1", time.Now().UTC())
	p.Version = 1
	require.NoError(t, st.SaveProfile(ctx, p))

	// Duplicate insert at version 1
	assert.ErrorIs(t, st.SaveProfile(ctx, p), loyalty.ErrConflict)

	// Skipping a version
	p.Version = 3
	assert.ErrorIs(t, st.SaveProfile(ctx, p), loyalty.ErrConflict)

	// The expected next version lands
	p.Version = 2
	p.CurrentBalance = 42
	require.NoError(t, st.SaveProfile(ctx, p))

	got, err := st.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.CurrentBalance)
}

func TestSQLite_WithTxRollsBackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx loyalty.Store) error {
		if err := tx.AppendTransaction(ctx, testTx("tx-1", "u1", 10, loyalty.KindEarn, time.Now().UTC())); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	txs, err := st.TransactionsForReplay(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestSQLite_WithTxCommits(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(tx loyalty.Store) error {
		if err := tx.AppendTransaction(ctx, testTx("tx-1", "u1", 10, loyalty.KindEarn, time.Now().UTC())); err != nil {
			return err
		}
		p := loyalty.NewProfile("u1", time.Now().UTC())
		p.CurrentBalance = 10
		p.LifetimePoints = 10
		p.Version = 1
		return tx.SaveProfile(ctx, p)
	})
	require.NoError(t, err)

	got, err := st.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(10), got.CurrentBalance)
}

func TestSQLite_Users(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, id := range []loyalty.UserID{"u2", "u1"} {
		p := loyalty.NewProfile(id, time.Now().UTC())
		p.Version = 1
		require.NoError(t, st.SaveProfile(ctx, p))
	}

	users, err := st.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []loyalty.UserID{"u1", "u2"}, users)
}
