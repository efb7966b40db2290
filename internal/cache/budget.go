// Package cache holds the in-process read-through cache for budget
// snapshots, so every planning step does not hit SQLite for a row that
// rarely changes.
package cache

import (
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"
	"makwenta.app/finance-assistant/internal/store"
)

const budgetTTL = 5 * time.Minute

// BudgetCache is a read-through cache over the budgets table. A cached nil
// is a valid entry: it remembers that the user has no budget configured.
type BudgetCache struct {
	store *store.SQLiteStore
	cache *ristretto.Cache
}

type budgetEntry struct {
	budget *store.BudgetConfig
}

func NewBudgetCache(s *store.SQLiteStore) (*BudgetCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create budget cache: %w", err)
	}
	return &BudgetCache{store: s, cache: c}, nil
}

// Get returns the user's budget config, loading from the store on a miss.
// Returns nil when the user has no budget set.
func (c *BudgetCache) Get(userID string) (*store.BudgetConfig, error) {
	if v, ok := c.cache.Get(userID); ok {
		return v.(budgetEntry).budget, nil
	}

	budget, err := c.store.GetBudget(userID)
	if err != nil {
		return nil, err
	}
	if !c.cache.SetWithTTL(userID, budgetEntry{budget: budget}, 1, budgetTTL) {
		log.Printf("Budget cache rejected entry for user %s", userID)
	}
	return budget, nil
}

// Invalidate drops the cached entry after a budget write.
func (c *BudgetCache) Invalidate(userID string) {
	c.cache.Del(userID)
}

func (c *BudgetCache) Close() {
	c.cache.Close()
}
