package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"restock-sync/internal/domain"
	"restock-sync/internal/events"
	"restock-sync/internal/remote"
	"restock-sync/internal/remote/remotetest"
	"restock-sync/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errOffline = fmt.Errorf("dial tcp: connection refused: %w", remote.ErrBackendUnavailable)

func newBatch(id string, userID, customSupplyID int64, stock int) domain.Batch {
	return domain.Batch{
		ID:     id,
		UserID: userID,
		Stock:  stock,
		CustomSupply: domain.CustomSupply{
			ID:       customSupplyID,
			UserID:   userID,
			Price:    decimal.NewFromInt(5),
			MaxStock: 100,
		},
	}
}

func newReconciler(t *testing.T, policy WritePolicy) (*BatchReconciler, *remotetest.MockClient, *store.MemoryBatchStore, *events.InMemoryEventPublisher) {
	t.Helper()
	client := new(remotetest.MockClient)
	batchStore := store.NewMemoryBatchStore()
	publisher := events.NewInMemoryEventPublisher(zap.NewNop())
	return NewBatchReconciler(client, batchStore, publisher, policy, zap.NewNop()), client, batchStore, publisher
}

func TestFetchBatches_RemoteWinsAndLocalOnlySurvives(t *testing.T) {
	r, client, batchStore, _ := newReconciler(t, PolicySurface)
	ctx := context.Background()

	require.NoError(t, batchStore.Upsert(ctx, newBatch("b-1", 1, 7, 1)))
	require.NoError(t, batchStore.Upsert(ctx, newBatch("local-x", 1, 7, 5)))
	client.On("ListBatches", mock.Anything, int64(1)).
		Return([]domain.Batch{newBatch("b-1", 1, 7, 9), newBatch("b-3", 1, 8, 2)}, nil)

	batches, err := r.FetchBatches(ctx, 1)

	require.NoError(t, err)
	require.Len(t, batches, 3)
	byID := make(map[string]domain.Batch)
	for _, b := range batches {
		_, dup := byID[b.ID]
		assert.False(t, dup, "batch %s listed twice", b.ID)
		byID[b.ID] = b
	}
	assert.Equal(t, 9, byID["b-1"].Stock)
	assert.Equal(t, 5, byID["local-x"].Stock)
	assert.Contains(t, byID, "b-3")
	client.AssertExpectations(t)
}

func TestFetchBatches_IgnoresOtherUsersLocalBatches(t *testing.T) {
	r, client, batchStore, _ := newReconciler(t, PolicySurface)
	ctx := context.Background()

	require.NoError(t, batchStore.Upsert(ctx, newBatch("local-a", 2, 7, 1)))
	client.On("ListBatches", mock.Anything, int64(1)).Return([]domain.Batch{}, nil)

	batches, err := r.FetchBatches(ctx, 1)

	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestFetchBatches_SurfacesRemoteFailure(t *testing.T) {
	r, client, batchStore, _ := newReconciler(t, PolicySurface)
	ctx := context.Background()
	require.NoError(t, batchStore.Upsert(ctx, newBatch("b-1", 1, 7, 1)))
	client.On("ListBatches", mock.Anything, int64(1)).Return(nil, errOffline)

	batches, err := r.FetchBatches(ctx, 1)

	assert.Nil(t, batches)
	assert.ErrorIs(t, err, remote.ErrBackendUnavailable)
}

func TestFetchBatchesOrCached_FallsBackToLocal(t *testing.T) {
	r, client, batchStore, _ := newReconciler(t, PolicySurface)
	ctx := context.Background()
	require.NoError(t, batchStore.Upsert(ctx, newBatch("b-1", 1, 7, 1)))
	client.On("ListBatches", mock.Anything, int64(1)).Return(nil, errOffline)

	batches, stale := r.FetchBatchesOrCached(ctx, 1)

	assert.True(t, stale)
	require.Len(t, batches, 1)
	assert.Equal(t, "b-1", batches[0].ID)
}

func TestFetchBatchesOrCached_EmptyStoreGivesEmptyList(t *testing.T) {
	r, client, _, _ := newReconciler(t, PolicySurface)
	client.On("ListBatches", mock.Anything, int64(1)).Return(nil, errOffline)

	batches, stale := r.FetchBatchesOrCached(context.Background(), 1)

	assert.True(t, stale)
	assert.NotNil(t, batches)
	assert.Empty(t, batches)
}

func TestCreateBatch_StoresServerCopy(t *testing.T) {
	r, client, batchStore, publisher := newReconciler(t, PolicySurface)
	ctx := context.Background()
	draft := newBatch("", 1, 7, 4)
	saved := newBatch("b-42", 1, 7, 4)
	client.On("CreateBatch", mock.Anything, draft).Return(&saved, nil)

	created, err := r.CreateBatch(ctx, draft)

	require.NoError(t, err)
	assert.Equal(t, "b-42", created.ID)
	cached, err := batchStore.Get(ctx, "b-42")
	require.NoError(t, err)
	assert.Equal(t, 4, cached.Stock)

	published := publisher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.BatchSynced{BatchID: "b-42", UserID: 1, CustomSupplyID: 7, Stock: 4, OccurredAt: published[0].(events.BatchSynced).OccurredAt}, published[0])
}

func TestCreateBatch_SurfacePolicyReturnsFailure(t *testing.T) {
	r, client, batchStore, _ := newReconciler(t, PolicySurface)
	ctx := context.Background()
	rejection := &remote.APIError{StatusCode: 422, Message: "stock exceeds max"}
	client.On("CreateBatch", mock.Anything, mock.Anything).Return(nil, rejection)

	created, err := r.CreateBatch(ctx, newBatch("", 1, 7, 4))

	assert.Nil(t, created)
	var apiErr *remote.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "stock exceeds max", apiErr.Message)
	all, _ := batchStore.List(ctx)
	assert.Empty(t, all)
}

func TestCreateBatch_OptimisticPolicyKeepsLocalRecord(t *testing.T) {
	r, client, batchStore, _ := newReconciler(t, PolicyOptimisticLocal)
	ctx := context.Background()
	client.On("CreateBatch", mock.Anything, mock.Anything).Return(nil, errOffline)

	created, err := r.CreateBatch(ctx, newBatch("", 1, 7, 4))

	require.NoError(t, err)
	assert.True(t, created.IsLocalOnly())
	assert.Contains(t, created.ID, domain.LocalBatchPrefix)
	_, err = batchStore.Get(ctx, created.ID)
	assert.NoError(t, err)
}

func TestCreateBatch_MalformedAnswerIsNotDuplicatedLocally(t *testing.T) {
	r, client, batchStore, publisher := newReconciler(t, PolicyOptimisticLocal)
	ctx := context.Background()
	client.On("CreateBatch", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: POST /batches", remote.ErrMalformedResponse))

	created, err := r.CreateBatch(ctx, newBatch("", 1, 7, 4))

	assert.Nil(t, created)
	assert.ErrorIs(t, err, remote.ErrMalformedResponse)
	all, _ := batchStore.List(ctx)
	assert.Empty(t, all)
	assert.Empty(t, publisher.Events())
}

func TestCreateBatch_NegativeStockNeverReachesBackend(t *testing.T) {
	r, client, _, _ := newReconciler(t, PolicySurface)

	_, err := r.CreateBatch(context.Background(), newBatch("", 1, 7, -1))

	assert.ErrorIs(t, err, domain.ErrNegativeStock)
	client.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestUpdateBatch_ReplacesCachedEntry(t *testing.T) {
	r, client, batchStore, _ := newReconciler(t, PolicySurface)
	ctx := context.Background()
	require.NoError(t, batchStore.Upsert(ctx, newBatch("b-1", 1, 7, 1)))
	edited := newBatch("b-1", 1, 7, 12)
	client.On("UpdateBatch", mock.Anything, edited).Return(&edited, nil)

	updated, err := r.UpdateBatch(ctx, edited)

	require.NoError(t, err)
	assert.Equal(t, 12, updated.Stock)
	cached, _ := batchStore.Get(ctx, "b-1")
	assert.Equal(t, 12, cached.Stock)
}

func TestUpdateBatch_LocalOnlyIsCreatedRemotely(t *testing.T) {
	r, client, batchStore, _ := newReconciler(t, PolicySurface)
	ctx := context.Background()
	pending := newBatch("local-1", 1, 7, 3)
	require.NoError(t, batchStore.Upsert(ctx, pending))
	synced := newBatch("b-9", 1, 7, 3)
	client.On("CreateBatch", mock.Anything, pending).Return(&synced, nil)

	updated, err := r.UpdateBatch(ctx, pending)

	require.NoError(t, err)
	assert.Equal(t, "b-9", updated.ID)
	_, err = batchStore.Get(ctx, "local-1")
	assert.ErrorIs(t, err, store.ErrBatchNotFound)
	client.AssertNotCalled(t, "UpdateBatch", mock.Anything, mock.Anything)
}

func TestDeleteBatch_LocalCopyRemovedEvenWhenBackendFails(t *testing.T) {
	r, client, batchStore, publisher := newReconciler(t, PolicySurface)
	ctx := context.Background()
	require.NoError(t, batchStore.Upsert(ctx, newBatch("b-1", 1, 7, 1)))
	client.On("DeleteBatch", mock.Anything, "b-1").Return(errOffline)

	err := r.DeleteBatch(ctx, 1, "b-1")

	assert.ErrorIs(t, err, remote.ErrBackendUnavailable)
	_, getErr := batchStore.Get(ctx, "b-1")
	assert.ErrorIs(t, getErr, store.ErrBatchNotFound)
	require.Len(t, publisher.Events(), 1)
	assert.False(t, publisher.Events()[0].(events.BatchDeleted).RemoteDeleted)
}

func TestDeleteBatch_BackendNotFoundCountsAsDeleted(t *testing.T) {
	r, client, _, _ := newReconciler(t, PolicySurface)
	client.On("DeleteBatch", mock.Anything, "b-1").Return(&remote.APIError{StatusCode: 404})

	assert.NoError(t, r.DeleteBatch(context.Background(), 1, "b-1"))
}

func TestDeleteBatch_LocalOnlySkipsBackend(t *testing.T) {
	r, client, batchStore, _ := newReconciler(t, PolicySurface)
	ctx := context.Background()
	require.NoError(t, batchStore.Upsert(ctx, newBatch("local-1", 1, 7, 1)))

	require.NoError(t, r.DeleteBatch(ctx, 1, "local-1"))

	client.AssertNotCalled(t, "DeleteBatch", mock.Anything, mock.Anything)
	all, _ := batchStore.List(ctx)
	assert.Empty(t, all)
}

func TestListExpiring(t *testing.T) {
	r, client, _, _ := newReconciler(t, PolicySurface)
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	at := func(days int) *time.Time {
		d := now.AddDate(0, 0, days)
		return &d
	}
	sentinel, _ := domain.ParseExpiration(domain.NonPerishableDate)

	soon, sooner, later, never := newBatch("b-1", 1, 7, 1), newBatch("b-2", 1, 7, 1), newBatch("b-3", 1, 7, 1), newBatch("b-4", 1, 7, 1)
	soon.ExpirationDate = at(3)
	sooner.ExpirationDate = at(1)
	later.ExpirationDate = at(30)
	never.ExpirationDate = sentinel
	client.On("ListBatches", mock.Anything, int64(1)).Return([]domain.Batch{soon, sooner, later, never}, nil)

	expiring, stale := r.ListExpiring(context.Background(), 1, 7*24*time.Hour)

	assert.False(t, stale)
	require.Len(t, expiring, 2)
	assert.Equal(t, "b-2", expiring[0].ID)
	assert.Equal(t, "b-1", expiring[1].ID)
}

func TestParseWritePolicy(t *testing.T) {
	policy, err := ParseWritePolicy("optimistic-local")
	require.NoError(t, err)
	assert.Equal(t, PolicyOptimisticLocal, policy)

	_, err = ParseWritePolicy("retry-forever")
	assert.Error(t, err)
}
