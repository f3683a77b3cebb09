package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client), mr
}

func TestRoomMetaRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	err := s.SaveRoomMeta(ctx, "r1", map[string]any{"status": "waiting", "admin_id": "u1"})
	require.NoError(t, err)

	meta, err := s.RoomMeta(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "waiting", meta["status"])
	assert.Equal(t, "u1", meta["admin_id"])
}

func TestPlayerRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	err := s.SavePlayer(ctx, "r1", "u1", map[string]any{"display_name": "Ada", "score": "0"})
	require.NoError(t, err)

	p, err := s.Player(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p["display_name"])

	err = s.DeletePlayer(ctx, "r1", "u1")
	require.NoError(t, err)

	p, err = s.Player(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestPresence(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, s.PresenceAdd(ctx, "r1", "u1"))
	require.NoError(t, s.PresenceAdd(ctx, "r1", "u2"))

	members, err := s.Presence(ctx, "r1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, members)

	require.NoError(t, s.PresenceRemove(ctx, "r1", "u1"))
	members, err = s.Presence(ctx, "r1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u2"}, members)
}

func TestDrawerQueue(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, s.PushDrawer(ctx, "r1", "u1"))
	require.NoError(t, s.PushDrawer(ctx, "r1", "u2"))

	next, err := s.PopDrawer(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "u1", next)

	require.NoError(t, s.RemoveFromDrawerQueue(ctx, "r1", "u2"))
	next, err = s.PopDrawer(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestUsedWords(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, s.MarkWordUsed(ctx, "r1", "guitar"))
	require.NoError(t, s.MarkWordUsed(ctx, "r1", "piano"))

	words, err := s.UsedWords(ctx, "r1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"guitar", "piano"}, words)
}

func TestTurnDeadlineExpiry(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, s.SetTurnDeadline(ctx, "r1", 50*time.Millisecond))
	assert.True(t, mr.Exists(turnDeadlineKey("r1")))

	mr.FastForward(100 * time.Millisecond)
	assert.False(t, mr.Exists(turnDeadlineKey("r1")))

	meta, err := s.RoomMeta(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, meta)
}

func TestLockAndUnlock(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	err := s.Lock(ctx, "r1", "token-a", time.Second)
	require.NoError(t, err)

	err = s.Lock(ctx, "r1", "token-b", time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)

	err = s.Unlock(ctx, "r1", "token-b")
	require.NoError(t, err)

	err = s.Lock(ctx, "r1", "token-b", time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)

	err = s.Unlock(ctx, "r1", "token-a")
	require.NoError(t, err)

	err = s.Lock(ctx, "r1", "token-b", time.Second)
	assert.NoError(t, err)
}

func TestRoomIDFromExpiredKey(t *testing.T) {
	roomID, ok := RoomIDFromExpiredKey("room:abc123:turn_deadline")
	assert.True(t, ok)
	assert.Equal(t, "abc123", roomID)

	_, ok = RoomIDFromExpiredKey("room:abc123:meta")
	assert.False(t, ok)

	_, ok = RoomIDFromExpiredKey("unrelated")
	assert.False(t, ok)
}

func TestDeleteRoom(t *testing.T) {
	s, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveRoomMeta(ctx, "r1", map[string]any{"status": "waiting"}))
	require.NoError(t, s.PresenceAdd(ctx, "r1", "u1"))

	require.NoError(t, s.DeleteRoom(ctx, "r1"))

	meta, err := s.RoomMeta(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, meta)

	members, err := s.Presence(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, members)
}
