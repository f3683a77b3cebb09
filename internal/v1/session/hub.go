// Package session - hub.go
//
// Hub is the central coordinator for every room in the process: it
// authenticates incoming WebSocket connections, creates rooms on first
// join, and removes them (after a grace period) once the last player
// disconnects.
package session

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/singhalkarun/scribble/backend/go/internal/v1/auth"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/bus"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/catalog"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenValidator authenticates the bearer token a client presents when
// opening a WebSocket connection.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.CustomClaims, error)
}

// BusService is the distributed pub/sub dependency a Hub and its rooms
// use to fan a broadcast out across pods. Nil means single-instance
// mode: no cross-pod messaging, every room lives on one pod.
type BusService interface {
	Publish(ctx context.Context, roomID, event string, payload any, senderID string) error
	PublishDirect(ctx context.Context, targetUserID, event string, payload any, senderID string) error
	Subscribe(ctx context.Context, roomID string, wg *sync.WaitGroup, handler func(bus.PubSubPayload))
	SetAdd(ctx context.Context, key, member string) error
	SetRem(ctx context.Context, key, member string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	Close() error
}

// joinableRoomsKey is the Redis set of rooms currently in the lobby
// (waiting, not yet started) that join-random may place a player into.
const joinableRoomsKey = "rooms:public:joinable"

// Hub owns the registry of live rooms and the shared services (auth,
// bus, word catalog) every room needs.
type Hub struct {
	rooms               map[RoomIDType]*Room
	mu                  sync.Mutex
	validator           TokenValidator
	pendingRoomCleanups map[RoomIDType]*time.Timer
	bus                 BusService
	catalog             *catalog.Catalog
	cleanupGracePeriod  time.Duration
}

// NewHub wires a Hub with its authentication, pub/sub, and word-catalog
// dependencies. bus may be nil for single-instance mode.
func NewHub(validator TokenValidator, busService BusService, cat *catalog.Catalog) *Hub {
	return &Hub{
		rooms:               make(map[RoomIDType]*Room),
		validator:           validator,
		pendingRoomCleanups: make(map[RoomIDType]*time.Timer),
		bus:                 busService,
		catalog:             cat,
		cleanupGracePeriod:  5 * time.Second,
	}
}

// ServeWs authenticates the connecting user, upgrades to a WebSocket,
// and hands the new client off to its room.
func (h *Hub) ServeWs(c *gin.Context) {
	allowedOrigins := auth.GetAllowedOriginsFromEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	tokenResult, err := h.extractToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token not provided"})
		return
	}

	claims, err := h.authenticateUser(c.Request.Context(), tokenResult.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := validateOrigin(c.Request, allowedOrigins); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}

	conn, err := h.upgradeWebSocket(c, allowedOrigins, tokenResult)
	if err != nil {
		return
	}

	roomID := RoomIDType(c.Param("roomId"))
	client, room := h.setupClientConnection(&clientSetupParams{
		RoomID:   roomID,
		Claims:   claims,
		DevMode:  c.Query("dev") == "true",
		RoomType: c.Query("room_type"),
		Conn:     conn,
	})

	metrics.IncConnection()
	room.handleClientConnect(client)

	go client.writePump()
	go client.readPump()
}

// JoinRandomRoom picks a random joinable (waiting, not yet started) room
// and returns its ID, or 404 if none are open.
func (h *Hub) JoinRandomRoom(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no joinable rooms"})
		return
	}

	members, err := h.bus.SetMembers(c.Request.Context(), joinableRoomsKey)
	if err != nil || len(members) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no joinable rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room_id": members[rand.Intn(len(members))]})
}

// removeRoom schedules a room for deletion after a grace period so a
// brief refresh/reconnect doesn't tear down and recreate room state.
func (h *Hub) removeRoom(roomID RoomIDType) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.pendingRoomCleanups[roomID]; ok {
		existing.Stop()
		delete(h.pendingRoomCleanups, roomID)
	}

	timer := time.AfterFunc(h.cleanupGracePeriod, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		room, ok := h.rooms[roomID]
		if !ok {
			delete(h.pendingRoomCleanups, roomID)
			return
		}

		room.mu.RLock()
		empty := room.allDisconnected()
		room.mu.RUnlock()

		if empty {
			delete(h.rooms, roomID)
			delete(h.pendingRoomCleanups, roomID)
			if h.bus != nil {
				_ = h.bus.SetRem(context.Background(), joinableRoomsKey, string(roomID))
			}
			metrics.ActiveRooms.Dec()
			metrics.RoomParticipants.DeleteLabelValues(string(roomID))
			logging.Info(context.Background(), "removed empty room after grace period", zap.String("room_id", string(roomID)))
		} else {
			delete(h.pendingRoomCleanups, roomID)
		}
	})

	h.pendingRoomCleanups[roomID] = timer
}

// getOrCreateRoom returns the room for roomID, creating it if this is
// the first join, and cancels any pending cleanup if a player is
// rejoining before the grace period elapsed.
func (h *Hub) getOrCreateRoom(roomID RoomIDType) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[roomID]; ok {
		if timer, pending := h.pendingRoomCleanups[roomID]; pending {
			timer.Stop()
			delete(h.pendingRoomCleanups, roomID)
		}
		return room
	}

	room := NewRoom(roomID, h.catalog, h.removeRoom, h.bus, DefaultRoomSettings())
	h.rooms[roomID] = room
	metrics.ActiveRooms.Inc()
	return room
}

// getOrCreateRoomWithSettings behaves like getOrCreateRoom but, for a
// brand-new room, overrides the default settings' room_type with the
// creator's request.
func (h *Hub) getOrCreateRoomWithSettings(roomID RoomIDType, roomType string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[roomID]; ok {
		if timer, pending := h.pendingRoomCleanups[roomID]; pending {
			timer.Stop()
			delete(h.pendingRoomCleanups, roomID)
		}
		return room
	}

	settings := DefaultRoomSettings()
	if rt := RoomType(roomType); rt == RoomTypePublic || rt == RoomTypePrivate {
		settings.RoomType = rt
	}

	room := NewRoom(roomID, h.catalog, h.removeRoom, h.bus, settings)
	h.rooms[roomID] = room
	metrics.ActiveRooms.Inc()
	return room
}
