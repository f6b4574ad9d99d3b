package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"restock-sync/internal/domain"
	"restock-sync/internal/events"
	"restock-sync/internal/remote"
	"restock-sync/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchReconciler merges the backend batch list with the offline store
// and keeps the store in step with every write.
type BatchReconciler struct {
	remote    remote.Client
	store     store.BatchStore
	publisher events.Publisher
	policy    WritePolicy
	logger    *zap.Logger
	now       func() time.Time
}

func NewBatchReconciler(client remote.Client, batchStore store.BatchStore, publisher events.Publisher, policy WritePolicy, logger *zap.Logger) *BatchReconciler {
	return &BatchReconciler{
		remote:    client,
		store:     batchStore,
		publisher: publisher,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

// FetchBatches returns the union of local and remote batches with the
// remote value winning on id collision. A remote failure is returned as is.
func (r *BatchReconciler) FetchBatches(ctx context.Context, userID int64) ([]domain.Batch, error) {
	remoteBatches, err := r.remote.ListBatches(ctx, userID)
	if err != nil {
		return nil, err
	}

	local, err := r.localBatches(ctx, userID)
	if err != nil {
		// the remote view is still valid without the cache
		r.logger.Warn("Failed to read local batches, returning remote view only", zap.Error(err))
		local = nil
	}

	merged := make(map[string]domain.Batch, len(local)+len(remoteBatches))
	for _, batch := range local {
		merged[batch.ID] = batch
	}
	for _, batch := range remoteBatches {
		merged[batch.ID] = batch
	}
	return sortedBatches(merged), nil
}

// FetchBatchesOrCached never fails: on remote failure it returns the local
// batches and stale=true.
func (r *BatchReconciler) FetchBatchesOrCached(ctx context.Context, userID int64) (batches []domain.Batch, stale bool) {
	batches, err := r.FetchBatches(ctx, userID)
	if err == nil {
		return batches, false
	}

	r.logger.Warn("Backend batch fetch failed, serving local batches",
		zap.Int64("user_id", userID),
		zap.Error(err),
	)
	local, localErr := r.localBatches(ctx, userID)
	if localErr != nil {
		r.logger.Error("Failed to read local batches", zap.Error(localErr))
		return []domain.Batch{}, true
	}
	merged := make(map[string]domain.Batch, len(local))
	for _, batch := range local {
		merged[batch.ID] = batch
	}
	return sortedBatches(merged), true
}

// ListExpiring returns perishable batches expiring within window, soonest first
func (r *BatchReconciler) ListExpiring(ctx context.Context, userID int64, window time.Duration) ([]domain.Batch, bool) {
	batches, stale := r.FetchBatchesOrCached(ctx, userID)
	now := r.now()

	expiring := make([]domain.Batch, 0)
	for _, batch := range batches {
		if batch.ExpiresWithin(now, window) {
			expiring = append(expiring, batch)
		}
	}
	sort.SliceStable(expiring, func(i, j int) bool {
		return expiring[i].ExpirationDate.Before(*expiring[j].ExpirationDate)
	})
	return expiring, stale
}

func (r *BatchReconciler) CreateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	created, err := r.remote.CreateBatch(ctx, batch)
	if err != nil {
		if !r.policy.keepsLocalCopy(err) {
			return nil, err
		}
		batch.ID = domain.LocalBatchPrefix + uuid.New().String()
		r.logger.Warn("Backend create failed, keeping optimistic local batch",
			zap.String("batch_id", batch.ID),
			zap.Error(err),
		)
		return r.keep(ctx, batch)
	}
	return r.keep(ctx, *created)
}

func (r *BatchReconciler) UpdateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error) {
	if batch.ID == "" {
		return nil, store.ErrMissingID
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	// a batch that never reached the backend is created there instead
	var (
		updated *domain.Batch
		err     error
	)
	if batch.IsLocalOnly() {
		localID := batch.ID
		updated, err = r.remote.CreateBatch(ctx, batch)
		if err == nil {
			if delErr := r.store.Delete(ctx, localID); delErr != nil {
				r.logger.Warn("Failed to drop synced local batch", zap.String("batch_id", localID), zap.Error(delErr))
			}
		}
	} else {
		updated, err = r.remote.UpdateBatch(ctx, batch)
	}

	if err != nil {
		if !r.policy.keepsLocalCopy(err) {
			return nil, err
		}
		r.logger.Warn("Backend update failed, keeping optimistic local edit",
			zap.String("batch_id", batch.ID),
			zap.Error(err),
		)
		return r.keep(ctx, batch)
	}
	return r.keep(ctx, *updated)
}

// DeleteBatch removes the batch from the backend and always from the local store.
// The returned error reports the backend step only.
func (r *BatchReconciler) DeleteBatch(ctx context.Context, userID int64, id string) error {
	if id == "" {
		return store.ErrMissingID
	}

	var remoteErr error
	remoteDeleted := false
	if !(domain.Batch{ID: id}).IsLocalOnly() {
		remoteErr = r.remote.DeleteBatch(ctx, id)
		if remoteErr == nil || remote.IsNotFound(remoteErr) {
			remoteDeleted = true
			remoteErr = nil
		}
	}

	if err := r.store.Delete(ctx, id); err != nil {
		r.logger.Error("Failed to delete local batch", zap.String("batch_id", id), zap.Error(err))
		if remoteErr == nil {
			remoteErr = fmt.Errorf("local delete: %w", err)
		}
	}

	events.Emit(ctx, r.publisher, r.logger, events.BatchDeleted{
		BatchID:       id,
		UserID:        userID,
		RemoteDeleted: remoteDeleted,
		OccurredAt:    r.now(),
	})
	return remoteErr
}

func (r *BatchReconciler) keep(ctx context.Context, batch domain.Batch) (*domain.Batch, error) {
	if err := r.store.Upsert(ctx, batch); err != nil {
		// the backend already has it; the offline copy is best effort
		r.logger.Warn("Failed to cache batch locally", zap.String("batch_id", batch.ID), zap.Error(err))
		if batch.IsLocalOnly() {
			return nil, fmt.Errorf("store optimistic batch: %w", err)
		}
	}

	events.Emit(ctx, r.publisher, r.logger, events.BatchSynced{
		BatchID:        batch.ID,
		UserID:         batch.UserID,
		CustomSupplyID: batch.CustomSupply.ID,
		Stock:          batch.Stock,
		LocalOnly:      batch.IsLocalOnly(),
		OccurredAt:     r.now(),
	})
	return &batch, nil
}

func (r *BatchReconciler) localBatches(ctx context.Context, userID int64) ([]domain.Batch, error) {
	all, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return all, nil
	}
	owned := make([]domain.Batch, 0, len(all))
	for _, batch := range all {
		if batch.UserID == userID {
			owned = append(owned, batch)
		}
	}
	return owned, nil
}

// Get returns a batch from the local store, falling back to a fresh fetch
func (r *BatchReconciler) Get(ctx context.Context, userID int64, id string) (*domain.Batch, error) {
	batch, err := r.store.Get(ctx, id)
	if err == nil {
		return batch, nil
	}
	if !errors.Is(err, store.ErrBatchNotFound) {
		return nil, err
	}

	batches, _ := r.FetchBatchesOrCached(ctx, userID)
	for i := range batches {
		if batches[i].ID == id {
			return &batches[i], nil
		}
	}
	return nil, store.ErrBatchNotFound
}

func sortedBatches(byID map[string]domain.Batch) []domain.Batch {
	out := make([]domain.Batch, 0, len(byID))
	for _, batch := range byID {
		out = append(out, batch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
