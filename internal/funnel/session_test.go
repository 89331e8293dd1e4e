package funnel

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisSessionStore(client, 30*time.Minute)
	ctx := context.Background()

	sess := &Session{
		ID:        "sess-1",
		State:     NewState(testNow),
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, StepPlan, got.State.Step)
	assert.Equal(t, PlanTrial, got.State.SelectedPlan)
	assert.True(t, got.State.Metrics.StartedAt.Equal(testNow))
}

func TestRedisSessionStoreMissing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisSessionStore(client, 30*time.Minute)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisSessionStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &Session{ID: "sess-1", State: NewState(testNow)}))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreCopies(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	sess := &Session{ID: "sess-1", State: NewState(testNow), Processing: []SubStepStatus{{ID: "a"}}}
	require.NoError(t, store.Put(ctx, sess))

	// Mutating the caller's copy must not leak into the store.
	sess.State.Step = StepReveal
	sess.Processing[0].Done = true

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, StepPlan, got.State.Step)
	assert.False(t, got.Processing[0].Done)
}
