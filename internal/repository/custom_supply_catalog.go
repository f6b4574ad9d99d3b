package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"restock-sync/internal/domain"
	"restock-sync/internal/events"
	"restock-sync/internal/remote"
	"restock-sync/internal/store"

	"go.uber.org/zap"
)

// CustomSupplyCatalog serves custom supplies from the backend and keeps
// the last known list in memory so reads always have something to return.
type CustomSupplyCatalog struct {
	mu        sync.Mutex
	remote    remote.Client
	batches   store.BatchStore
	publisher events.Publisher
	policy    WritePolicy
	logger    *zap.Logger
	now       func() time.Time

	snapshot    map[int64]domain.CustomSupply
	nextLocalID int64
}

// DeleteOutcome reports both steps of a custom supply delete
type DeleteOutcome struct {
	ID              int64
	RemoteDeleted   bool
	RemoteErr       error
	CascadedBatches int
	LocalErr        error
}

// NewCustomSupplyCatalog builds a catalog seeded with snapshot (may be nil)
func NewCustomSupplyCatalog(client remote.Client, batches store.BatchStore, publisher events.Publisher, policy WritePolicy, logger *zap.Logger, snapshot []domain.CustomSupply) *CustomSupplyCatalog {
	c := &CustomSupplyCatalog{
		remote:    client,
		batches:   batches,
		publisher: publisher,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
		snapshot:  make(map[int64]domain.CustomSupply, len(snapshot)),
	}
	for _, supply := range snapshot {
		c.snapshot[supply.ID] = supply
		if supply.ID < c.nextLocalID {
			c.nextLocalID = supply.ID
		}
	}
	return c
}

// List returns the user's custom supplies. On backend failure it returns the
// last snapshot (empty on first use) and stale=true.
func (c *CustomSupplyCatalog) List(ctx context.Context, userID int64) (supplies []domain.CustomSupply, stale bool) {
	fetched, err := c.remote.ListCustomSupplies(ctx, userID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Backend custom supply fetch failed, serving snapshot",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return c.snapshotFor(userID), true
	}

	// replace the user's synced entries; unsynced local edits survive
	for id, supply := range c.snapshot {
		if ownedBy(supply, userID) && !supply.IsLocalOnly() {
			delete(c.snapshot, id)
		}
	}
	for _, supply := range fetched {
		c.snapshot[supply.ID] = supply
	}
	return c.snapshotFor(userID), false
}

// Get looks a custom supply up in the snapshot
func (c *CustomSupplyCatalog) Get(id int64) (domain.CustomSupply, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	supply, ok := c.snapshot[id]
	return supply, ok
}

func (c *CustomSupplyCatalog) Create(ctx context.Context, supply domain.CustomSupply) (*domain.CustomSupply, error) {
	if err := supply.Validate(); err != nil {
		return nil, err
	}

	created, err := c.remote.CreateCustomSupply(ctx, supply)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if !c.policy.keepsLocalCopy(err) {
			return nil, err
		}
		c.nextLocalID--
		supply.ID = c.nextLocalID
		c.logger.Warn("Backend create failed, keeping optimistic custom supply",
			zap.Int64("custom_supply_id", supply.ID),
			zap.Error(err),
		)
		c.snapshot[supply.ID] = supply
		return &supply, nil
	}

	c.snapshot[created.ID] = *created
	return created, nil
}

func (c *CustomSupplyCatalog) Update(ctx context.Context, supply domain.CustomSupply) (*domain.CustomSupply, error) {
	if err := supply.Validate(); err != nil {
		return nil, err
	}

	var (
		updated *domain.CustomSupply
		err     error
	)
	localID := supply.ID
	if supply.IsLocalOnly() {
		updated, err = c.remote.CreateCustomSupply(ctx, supply)
	} else {
		updated, err = c.remote.UpdateCustomSupply(ctx, supply)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if !c.policy.keepsLocalCopy(err) {
			return nil, err
		}
		c.logger.Warn("Backend update failed, keeping optimistic edit",
			zap.Int64("custom_supply_id", supply.ID),
			zap.Error(err),
		)
		c.snapshot[supply.ID] = supply
		return &supply, nil
	}

	if localID != updated.ID {
		delete(c.snapshot, localID)
		// cached batches must follow the synced id or the delete cascade misses them
		moved, err := c.batches.ReplaceCustomSupply(ctx, localID, *updated)
		if err != nil {
			c.logger.Error("Failed to re-point local batches to synced custom supply",
				zap.Int64("local_id", localID),
				zap.Int64("custom_supply_id", updated.ID),
				zap.Error(err),
			)
		} else if moved > 0 {
			c.logger.Info("Local batches re-pointed to synced custom supply",
				zap.Int64("local_id", localID),
				zap.Int64("custom_supply_id", updated.ID),
				zap.Int("batches", moved),
			)
		}
	}
	c.snapshot[updated.ID] = *updated
	return updated, nil
}

// Delete runs the backend delete and then, whatever its result, drops the
// supply from the snapshot and removes every cached batch referencing it.
func (c *CustomSupplyCatalog) Delete(ctx context.Context, userID, id int64) DeleteOutcome {
	outcome := DeleteOutcome{ID: id}

	if id > 0 {
		err := c.remote.DeleteCustomSupply(ctx, id)
		switch {
		case err == nil, remote.IsNotFound(err):
			outcome.RemoteDeleted = true
		default:
			outcome.RemoteErr = err
			c.logger.Warn("Backend custom supply delete failed, cleaning up locally anyway",
				zap.Int64("custom_supply_id", id),
				zap.Error(err),
			)
		}
	}

	c.mu.Lock()
	delete(c.snapshot, id)
	c.mu.Unlock()

	removed, err := c.batches.DeleteByCustomSupply(ctx, id)
	if err != nil {
		outcome.LocalErr = err
		c.logger.Error("Failed to cascade custom supply delete to local batches",
			zap.Int64("custom_supply_id", id),
			zap.Error(err),
		)
	}
	outcome.CascadedBatches = removed

	events.Emit(ctx, c.publisher, c.logger, events.CustomSupplyDeleted{
		CustomSupplyID:  id,
		UserID:          userID,
		RemoteDeleted:   outcome.RemoteDeleted,
		CascadedBatches: removed,
		OccurredAt:      c.now(),
	})
	return outcome
}

// snapshotFor must be called with mu held
func (c *CustomSupplyCatalog) snapshotFor(userID int64) []domain.CustomSupply {
	out := make([]domain.CustomSupply, 0, len(c.snapshot))
	for _, supply := range c.snapshot {
		if ownedBy(supply, userID) {
			out = append(out, supply)
		}
	}
	// synced ids ascending, then local-only records newest last
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsLocalOnly() != b.IsLocalOnly() {
			return !a.IsLocalOnly()
		}
		if a.IsLocalOnly() {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
	return out
}

func ownedBy(supply domain.CustomSupply, userID int64) bool {
	return userID == 0 || supply.UserID == userID
}
