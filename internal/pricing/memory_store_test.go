package pricing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRuleStore_UpsertAssignsIdentity(t *testing.T) {
	store := NewMemoryRuleStore()
	ctx := context.Background()

	rule := fixedRule("", 10, "5")
	saved, err := store.Upsert(ctx, rule)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, int64(1), saved.Sequence)
	assert.False(t, saved.CreatedAt.IsZero())

	saved.Priority = 99
	updated, err := store.Upsert(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Sequence, "updates keep creation order")
	assert.Equal(t, saved.CreatedAt, updated.CreatedAt)

	got, ok := store.Get(saved.ID)
	require.True(t, ok)
	assert.Equal(t, 99, got.Priority)
}

func TestMemoryRuleStore_SnapshotsAreImmutable(t *testing.T) {
	store := NewMemoryRuleStore()
	ctx := context.Background()

	_, err := store.Upsert(ctx, multiplierRule("a", 10, "1.5"))
	require.NoError(t, err)
	v1, err := store.Snapshot(ctx)
	require.NoError(t, err)

	_, err = store.Upsert(ctx, multiplierRule("a", 10, "3"))
	require.NoError(t, err)
	v2, err := store.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, v1.Version+1, v2.Version)
	assertDecimal(t, "1.5", *v1.Rules[0].Multiplier)
	assertDecimal(t, "3", *v2.Rules[0].Multiplier)
}

func TestMemoryRuleStore_RejectsInvalidRule(t *testing.T) {
	store := NewMemoryRuleStore()
	ctx := context.Background()

	_, err := store.Upsert(ctx, fixedRule("bad", 10, "5000"))
	assert.True(t, IsValidation(err))

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Version)
	assert.Empty(t, snap.Rules)
}

func TestMemoryRuleStore_Delete(t *testing.T) {
	store := NewMemoryRuleStore()
	ctx := context.Background()

	_, err := store.Upsert(ctx, globalRule("gone", 1))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "gone"))

	_, ok := store.Get("gone")
	assert.False(t, ok)
	assert.True(t, IsNotFound(store.Delete(ctx, "gone")))
}

func TestMemoryRuleStore_ConcurrentWritesAndReads(t *testing.T) {
	store := NewMemoryRuleStore()
	engine := NewEngine(store, DefaultConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := store.Upsert(ctx, fixedRule(fmt.Sprintf("r-%02d", i), i, "1"))
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := engine.Evaluate(ctx, request("10", "0", "0"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Rules, 20)
	assert.Equal(t, int64(20), snap.Version)
}
