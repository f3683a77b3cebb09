// Package store persists room and player state in Redis so that a room
// survives a pod restart and so presence can be verified across pods,
// generalizing the teacher's circuit-breaker-wrapped Redis bus calls
// into a dedicated state-store type.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/metrics"
	"github.com/sony/gobreaker"
)

// ErrLockHeld is returned by Lock when another pod already holds the
// room's advisory lock.
var ErrLockHeld = errors.New("store: room lock already held")

// unlockScript atomically deletes the lock key only if the caller's
// token still matches, so a pod can never release a lock it no longer
// owns (e.g. after its own lease expired and was reacquired elsewhere).
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// Store wraps a Redis client with the key conventions and circuit
// breaker used by every room in the fleet.
type Store struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

// New wraps an existing Redis client. Callers in production construct
// the client via bus.Service and share its connection pool; tests
// point it at miniredis directly.
func New(client *redis.Client) *Store {
	return &Store{
		client: client,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "store",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     15 * time.Second,
			OnStateChange: func(name string, from, to gobreaker.State) {
				var stateVal float64
				switch to {
				case gobreaker.StateOpen:
					stateVal = 1
				case gobreaker.StateHalfOpen:
					stateVal = 2
				}
				metrics.CircuitBreakerState.WithLabelValues("store").Set(stateVal)
			},
		}),
	}
}

func metaKey(roomID string) string        { return fmt.Sprintf("room:%s:meta", roomID) }
func playerKey(roomID, uid string) string  { return fmt.Sprintf("room:%s:player:%s", roomID, uid) }
func presenceKey(roomID string) string     { return fmt.Sprintf("room:%s:presence", roomID) }
func drawerQueueKey(roomID string) string  { return fmt.Sprintf("room:%s:drawer_queue", roomID) }
func usedWordsKey(roomID string) string    { return fmt.Sprintf("room:%s:used_words", roomID) }
func turnDeadlineKey(roomID string) string { return fmt.Sprintf("room:%s:turn_deadline", roomID) }
func lockKey(roomID string) string         { return fmt.Sprintf("room:%s:lock", roomID) }

// TurnDeadlineKeyPrefix is exported so callers can recognize which room
// a keyspace-expiry notification belongs to.
const TurnDeadlineKeyPrefix = "room:"
const turnDeadlineSuffix = ":turn_deadline"

// RoomIDFromExpiredKey extracts the room id from an expired
// turn_deadline key, returning ok=false for any other key shape.
func RoomIDFromExpiredKey(key string) (roomID string, ok bool) {
	const prefixLen = len(TurnDeadlineKeyPrefix)
	if len(key) <= prefixLen+len(turnDeadlineSuffix) {
		return "", false
	}
	if key[:prefixLen] != TurnDeadlineKeyPrefix {
		return "", false
	}
	if key[len(key)-len(turnDeadlineSuffix):] != turnDeadlineSuffix {
		return "", false
	}
	return key[prefixLen : len(key)-len(turnDeadlineSuffix)], true
}

func (s *Store) exec(fn func() (any, error)) error {
	_, err := s.cb.Execute(fn)
	if err == gobreaker.ErrOpenState {
		metrics.CircuitBreakerFailures.WithLabelValues("store").Inc()
	}
	return err
}

// Lock acquires the room's advisory lock with the given TTL, returning
// ErrLockHeld if another pod holds it. token should be unique per
// acquisition (e.g. a uuid) so Unlock can't release a lease it lost.
func (s *Store) Lock(ctx context.Context, roomID, token string, ttl time.Duration) error {
	var ok bool
	err := s.exec(func() (any, error) {
		res, err := s.client.SetNX(ctx, lockKey(roomID), token, ttl).Result()
		ok = res
		return nil, err
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Unlock releases the room's advisory lock only if token still owns it.
func (s *Store) Unlock(ctx context.Context, roomID, token string) error {
	return s.exec(func() (any, error) {
		return s.client.Eval(ctx, unlockScript, []string{lockKey(roomID)}, token).Result()
	})
}

// SaveRoomMeta writes room-level fields (status, phase, admin, etc).
func (s *Store) SaveRoomMeta(ctx context.Context, roomID string, fields map[string]any) error {
	return s.exec(func() (any, error) {
		return nil, s.client.HSet(ctx, metaKey(roomID), fields).Err()
	})
}

// RoomMeta reads all room-level fields.
func (s *Store) RoomMeta(ctx context.Context, roomID string) (map[string]string, error) {
	var out map[string]string
	err := s.exec(func() (any, error) {
		res, err := s.client.HGetAll(ctx, metaKey(roomID)).Result()
		out = res
		return nil, err
	})
	return out, err
}

// SavePlayer writes a player's fields (display_name, score, connected).
func (s *Store) SavePlayer(ctx context.Context, roomID, uid string, fields map[string]any) error {
	return s.exec(func() (any, error) {
		return nil, s.client.HSet(ctx, playerKey(roomID, uid), fields).Err()
	})
}

// Player reads one player's fields.
func (s *Store) Player(ctx context.Context, roomID, uid string) (map[string]string, error) {
	var out map[string]string
	err := s.exec(func() (any, error) {
		res, err := s.client.HGetAll(ctx, playerKey(roomID, uid)).Result()
		out = res
		return nil, err
	})
	return out, err
}

// DeletePlayer removes a player's hash entirely (used on kick, not on a
// transient disconnect, since a reconnect should find the player intact).
func (s *Store) DeletePlayer(ctx context.Context, roomID, uid string) error {
	return s.exec(func() (any, error) {
		return nil, s.client.Del(ctx, playerKey(roomID, uid)).Err()
	})
}

// PresenceAdd marks a user as present in the room.
func (s *Store) PresenceAdd(ctx context.Context, roomID, uid string) error {
	return s.exec(func() (any, error) {
		return nil, s.client.SAdd(ctx, presenceKey(roomID), uid).Err()
	})
}

// PresenceRemove marks a user as no longer present.
func (s *Store) PresenceRemove(ctx context.Context, roomID, uid string) error {
	return s.exec(func() (any, error) {
		return nil, s.client.SRem(ctx, presenceKey(roomID), uid).Err()
	})
}

// Presence lists every user id currently marked present. Read calls
// fail open: if the breaker is open, callers should fall back to their
// own last-known local state rather than treat an empty slice as truth.
func (s *Store) Presence(ctx context.Context, roomID string) ([]string, error) {
	var out []string
	err := s.exec(func() (any, error) {
		res, err := s.client.SMembers(ctx, presenceKey(roomID)).Result()
		out = res
		return nil, err
	})
	return out, err
}

// PushDrawer appends a user to the end of the room's drawer rotation.
func (s *Store) PushDrawer(ctx context.Context, roomID, uid string) error {
	return s.exec(func() (any, error) {
		return nil, s.client.RPush(ctx, drawerQueueKey(roomID), uid).Err()
	})
}

// PopDrawer removes and returns the next user in the drawer rotation.
func (s *Store) PopDrawer(ctx context.Context, roomID string) (string, error) {
	var out string
	err := s.exec(func() (any, error) {
		res, err := s.client.LPop(ctx, drawerQueueKey(roomID)).Result()
		out = res
		return nil, err
	})
	if err == redis.Nil {
		return "", nil
	}
	return out, err
}

// RemoveFromDrawerQueue removes every occurrence of a user from the
// rotation (used when a player leaves or is kicked mid-game).
func (s *Store) RemoveFromDrawerQueue(ctx context.Context, roomID, uid string) error {
	return s.exec(func() (any, error) {
		return nil, s.client.LRem(ctx, drawerQueueKey(roomID), 0, uid).Err()
	})
}

// MarkWordUsed records a word so the catalog won't suggest it again
// this room's lifetime.
func (s *Store) MarkWordUsed(ctx context.Context, roomID, word string) error {
	return s.exec(func() (any, error) {
		return nil, s.client.SAdd(ctx, usedWordsKey(roomID), word).Err()
	})
}

// UsedWords returns every word already played in the room.
func (s *Store) UsedWords(ctx context.Context, roomID string) ([]string, error) {
	var out []string
	err := s.exec(func() (any, error) {
		res, err := s.client.SMembers(ctx, usedWordsKey(roomID)).Result()
		out = res
		return nil, err
	})
	return out, err
}

// SetTurnDeadline writes a sentinel key that expires exactly when the
// current turn should end, letting any pod recover the deadline via a
// keyspace-expiry notification rather than relying solely on its own
// in-memory timer.
func (s *Store) SetTurnDeadline(ctx context.Context, roomID string, ttl time.Duration) error {
	return s.exec(func() (any, error) {
		return nil, s.client.Set(ctx, turnDeadlineKey(roomID), "1", ttl).Err()
	})
}

// ClearTurnDeadline removes the sentinel key, used when a turn ends
// before its natural deadline (e.g. everyone guessed correctly).
func (s *Store) ClearTurnDeadline(ctx context.Context, roomID string) error {
	return s.exec(func() (any, error) {
		return nil, s.client.Del(ctx, turnDeadlineKey(roomID)).Err()
	})
}

// DeleteRoom removes every key belonging to a room, called once the
// room empties and its grace period elapses.
func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	return s.exec(func() (any, error) {
		return nil, s.client.Del(ctx,
			metaKey(roomID),
			presenceKey(roomID),
			drawerQueueKey(roomID),
			usedWordsKey(roomID),
			turnDeadlineKey(roomID),
			lockKey(roomID),
		).Err()
	})
}
