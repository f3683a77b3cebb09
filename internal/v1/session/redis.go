package session

import (
	"context"
	"encoding/json"

	"github.com/singhalkarun/scribble/backend/go/internal/v1/bus"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"go.uber.org/zap"
)

// subscribeToRedis wires this room's pod to the room's pub/sub channel
// so clients connected to a different pod still see its broadcasts.
func (r *Room) subscribeToRedis() {
	if r.bus == nil {
		return
	}
	ctx := context.Background()
	r.bus.Subscribe(ctx, string(r.ID), nil, func(payload bus.PubSubPayload) {
		r.handleRedisMessage(payload)
	})
	logging.Info(ctx, "room subscribed to redis", zap.String("room_id", string(r.ID)))
}

// handleRedisMessage re-broadcasts an event that originated on another
// pod to this pod's locally-connected clients. skipRedis is always true
// here to avoid a publish loop.
func (r *Room) handleRedisMessage(payload bus.PubSubPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	senderID := UserIDType(payload.SenderID)
	r.broadcastWithOptions(context.Background(), Event(payload.Event), payload.Payload, senderID, true)
}

// publishToRedis mirrors a local broadcast onto the room's Redis channel
// so other pods' clients receive it. senderID prevents the echo from
// being re-delivered to the same pod that originated it (this pod
// already delivered it locally).
func (r *Room) publishToRedis(ctx context.Context, event Event, payload any, senderID UserIDType) {
	if r.bus == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		logging.Error(ctx, "failed to marshal payload for redis publish", zap.Error(err))
		return
	}
	if err := r.bus.Publish(ctx, string(r.ID), string(event), json.RawMessage(raw), string(senderID)); err != nil {
		logging.Warn(ctx, "failed to publish to redis", zap.String("room_id", string(r.ID)), zap.Error(err))
	}
}
