package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
)

func TestAppendAssignsIncreasingSeq(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	simID := uuid.New()
	now := time.Now()

	// Same timestamp on purpose: Seq must still give a total order.
	for range 5 {
		ev := models.NewEvent(simID, models.EventStatusChanged, "", now)
		require.NoError(t, store.Append(ctx, ev))
	}

	events, err := store.ListBySim(ctx, simID)
	require.NoError(t, err)
	require.Len(t, events, 5)

	var last int64
	for _, ev := range events {
		assert.Greater(t, ev.Seq, last)
		last = ev.Seq
	}
}

func TestListBySimIsolatesSims(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	simA, simB := uuid.New(), uuid.New()

	require.NoError(t, store.Append(ctx, models.NewEvent(simA, models.EventCreated, "", time.Now())))
	require.NoError(t, store.Append(ctx, models.NewEvent(simB, models.EventCreated, "", time.Now())))
	require.NoError(t, store.Append(ctx, models.NewEvent(simA, models.EventActivated, "", time.Now())))

	events, err := store.ListBySim(ctx, simA)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventCreated, events[0].Type)
	assert.Equal(t, models.EventActivated, events[1].Type)

	events, err = store.ListBySim(ctx, simB)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestListedEventsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	simID := uuid.New()

	require.NoError(t, store.Append(ctx, models.NewEvent(simID, models.EventCreated, "original", time.Now())))

	events, err := store.ListBySim(ctx, simID)
	require.NoError(t, err)
	events[0].Note = "tampered"

	again, err := store.ListBySim(ctx, simID)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Note)
}
