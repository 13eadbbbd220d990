package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dauTT/astroport-dca/internal/asset"
	"github.com/dauTT/astroport-dca/internal/types"
)

func sampleOrder(id uint64, user string) types.Order {
	return types.Order{
		ID:        id,
		CreatedBy: user,
		Interval:  3600,
		DcaAmount: asset.New(asset.TokenInfo("token_aaa"), asset.NewAmount(100)),
		Balance: types.Balance{
			Source: asset.New(asset.TokenInfo("token_aaa"), asset.NewAmount(1000)),
			Spent:  asset.Zero(asset.TokenInfo("token_aaa")),
			Target: asset.Zero(asset.TokenInfo("token_bbb")),
			Tip:    asset.New(asset.NativeInfo("uusdc"), asset.NewAmount(50)),
			Gas:    asset.New(asset.NativeInfo("uluna"), asset.NewAmount(10)),
		},
	}
}

func TestMemoryStoreOrders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id1, err := store.NextOrderID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id1)
	id2, err := store.NextOrderID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), id2)

	_, err = store.GetOrder(ctx, id1)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.PutOrder(ctx, sampleOrder(id1, "alice")))
	require.NoError(t, store.PutOrder(ctx, sampleOrder(id2, "alice")))

	got, err := store.GetOrder(ctx, id1)
	require.NoError(t, err)
	require.Equal(t, "alice", got.CreatedBy)

	ids, err := store.ListUserOrders(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ids)

	// updates do not duplicate the index entry
	updated := sampleOrder(id1, "alice")
	updated.Interval = 60
	require.NoError(t, store.PutOrder(ctx, updated))
	ids, err = store.ListUserOrders(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ids)

	require.NoError(t, store.RemoveOrder(ctx, id1))
	require.ErrorIs(t, store.RemoveOrder(ctx, id1), ErrNotFound)

	ids, err = store.ListUserOrders(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, ids)

	// removed ids are never reassigned
	id3, err := store.NextOrderID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), id3)
}

func TestMemoryStoreConfig(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.GetConfig(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	cfg := types.Config{Owner: "owner", MaxHops: 4, MaxSpread: "0.1"}
	require.NoError(t, store.SetConfig(ctx, cfg))

	got, err := store.GetConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestMemoryStoreListDueOrders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	due := sampleOrder(1, "alice")
	due.Balance.LastPurchase = 0
	due.Interval = 100
	require.NoError(t, store.PutOrder(ctx, due))

	notDue := sampleOrder(2, "bob")
	notDue.Balance.LastPurchase = 1000
	notDue.Interval = 100
	require.NoError(t, store.PutOrder(ctx, notDue))

	deferred := sampleOrder(3, "carol")
	deferred.StartAt = 5000
	require.NoError(t, store.PutOrder(ctx, deferred))

	ids, err := store.ListDueOrders(ctx, 500)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids)

	ids, err = store.ListDueOrders(ctx, 5000)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, ids)
}
