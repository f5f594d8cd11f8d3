package biz

import (
	"context"
	"testing"

	"settlement-service/internal/constants"
	settlementErrors "settlement-service/internal/errors"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"
)

func TestStatusCacheLoadsOnMiss(t *testing.T) {
	store := newFakeStore()
	cache := NewStatusCache(store, log.DefaultLogger)
	ctx := context.Background()

	id, err := cache.StatusID(ctx, constants.StatusRefunded)
	require.NoError(t, err)
	require.Equal(t, int64(4), id)
	require.Equal(t, 1, store.listStatusCalls)
	require.Equal(t, 1, store.invalidateCalls)

	id, err = cache.StatusID(ctx, constants.StatusSettlementPending)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.Equal(t, 1, store.listStatusCalls)
}

func TestStatusCacheUnknownCode(t *testing.T) {
	store := newFakeStore()
	cache := NewStatusCache(store, log.DefaultLogger)

	_, err := cache.StatusID(context.Background(), "PAID_OUT")
	require.Error(t, err)
	require.Equal(t, settlementErrors.ReasonStatusNotFound, errors.Reason(err))
}

func TestStatusCachePicksUpNewStatusAfterInvalidate(t *testing.T) {
	store := newFakeStore()
	cache := NewStatusCache(store, log.DefaultLogger)
	ctx := context.Background()

	require.NoError(t, cache.Reload(ctx))
	store.statuses = append(store.statuses, &SettlementStatus{ID: 9, Code: "ON_HOLD"})

	id, err := cache.StatusID(ctx, "ON_HOLD")
	require.NoError(t, err)
	require.Equal(t, int64(9), id)

	cache.Invalidate()
	id, err = cache.StatusID(ctx, constants.StatusSettlementPending)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.Equal(t, 3, store.listStatusCalls)
}

func TestStatusCacheLookupUnknownCodeKeepsCache(t *testing.T) {
	store := newFakeStore()
	cache := NewStatusCache(store, log.DefaultLogger)
	ctx := context.Background()

	// 首次查询时缓存为空，加载一次但不清除二级缓存
	_, err := cache.Lookup(ctx, "NOPE")
	require.Equal(t, settlementErrors.ReasonStatusNotFound, errors.Reason(err))
	require.Equal(t, 1, store.listStatusCalls)
	require.Zero(t, store.invalidateCalls)

	for i := 0; i < 5; i++ {
		_, err = cache.Lookup(ctx, "NOPE")
		require.Equal(t, settlementErrors.ReasonStatusNotFound, errors.Reason(err))
	}
	require.Equal(t, 1, store.listStatusCalls)
	require.Zero(t, store.invalidateCalls)

	id, err := cache.Lookup(ctx, constants.StatusRefunded)
	require.NoError(t, err)
	require.Equal(t, int64(4), id)
	require.Equal(t, 1, store.listStatusCalls)
}

func TestStatusCacheLookupReloadsKnownCode(t *testing.T) {
	store := newFakeStore()
	cache := NewStatusCache(store, log.DefaultLogger)
	ctx := context.Background()

	pending := store.statuses[0]
	store.statuses = store.statuses[1:]
	require.NoError(t, cache.Reload(ctx))

	// 约定的编码缺失时仍按失效后重载处理
	store.statuses = append(store.statuses, pending)
	id, err := cache.Lookup(ctx, constants.StatusSettlementPending)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.Equal(t, 1, store.invalidateCalls)
	require.Equal(t, 2, store.listStatusCalls)
}
