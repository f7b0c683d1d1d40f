package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"spotrunner-api/models"
)

func TestEventCache_SetThenGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewEventCache(db, 5*time.Minute)
	ctx := context.Background()

	event := &models.Event{ID: "evt-1", Name: "Jakarta Night Run", Capacity: 100, TotalParticipants: 12}
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectSet("spotrunner:event:evt-1", raw, 5*time.Minute).SetVal("OK")
	c.Set(ctx, event)

	mock.ExpectGet("spotrunner:event:evt-1").SetVal(string(raw))
	got, ok := c.Get(ctx, "evt-1")
	require.True(t, ok)
	assert.Equal(t, "Jakarta Night Run", got.Name)
	assert.Equal(t, 12, got.TotalParticipants)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCache_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewEventCache(db, time.Minute)

	mock.ExpectGet("spotrunner:event:missing").RedisNil()
	_, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)

	mock.ExpectGet("spotrunner:event:down").SetErr(errors.New("connection refused"))
	_, ok = c.Get(context.Background(), "down")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCache_CorruptEntryIsDropped(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewEventCache(db, time.Minute)

	mock.ExpectGet("spotrunner:event:evt-1").SetVal("{not json")
	mock.ExpectDel("spotrunner:event:evt-1").SetVal(1)

	_, ok := c.Get(context.Background(), "evt-1")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCache_InvalidateMany(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewEventCache(db, time.Minute)

	mock.ExpectDel("spotrunner:event:a", "spotrunner:event:b").SetVal(2)
	c.Invalidate(context.Background(), "a", "b")

	// no ids means no round trip
	c.Invalidate(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCache_NilIsANoop(t *testing.T) {
	var c *EventCache
	ctx := context.Background()

	_, ok := c.Get(ctx, "evt-1")
	assert.False(t, ok)
	assert.NotPanics(t, func() {
		c.Set(ctx, &models.Event{ID: "evt-1"})
		c.Invalidate(ctx, "evt-1")
	})
}

func TestHealthCheck(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, HealthCheck(context.Background(), db))

	mock.ExpectPing().SetErr(errors.New("timeout"))
	assert.Error(t, HealthCheck(context.Background(), db))
}
