package session

import (
	"context"

	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"go.uber.org/zap"
)

// The voice-chat signaling handlers forward SDP offers/answers and ICE
// candidates point-to-point between two players' sockets. Unlike the
// broadcast handlers, these always address a single target; the room
// has no selective forwarding unit, so signaling passes straight
// through to whichever peer the payload names.

func (r *Room) handleWebRTCOffer(ctx context.Context, client *Client, payload any) {
	p, ok := assertPayload[WebRTCOfferPayload](payload)
	if !ok {
		return
	}
	r.relayToTarget(ctx, EventWebRTCOffer, p, p.TargetUserID, client.UserID)
}

func (r *Room) handleWebRTCAnswer(ctx context.Context, client *Client, payload any) {
	p, ok := assertPayload[WebRTCAnswerPayload](payload)
	if !ok {
		return
	}
	r.relayToTarget(ctx, EventWebRTCAnswer, p, p.TargetUserID, client.UserID)
}

func (r *Room) handleICECandidate(ctx context.Context, client *Client, payload any) {
	p, ok := assertPayload[ICECandidatePayload](payload)
	if !ok {
		return
	}
	r.relayToTarget(ctx, EventICECandidate, p, p.TargetUserID, client.UserID)
}

// relayToTarget forwards a signaling payload to one specific player,
// locally if they're connected to this pod, or via Redis direct-publish
// otherwise.
func (r *Room) relayToTarget(ctx context.Context, event Event, payload any, target, sender UserIDType) {
	if c, ok := r.clients[target]; ok {
		c.sendMessage(Message{Event: event, Payload: payload})
		return
	}

	if r.bus == nil {
		logging.Warn(ctx, "webrtc relay target not found locally and no bus configured",
			zap.String("room_id", string(r.ID)), zap.String("target", string(target)))
		return
	}

	if err := r.bus.PublishDirect(ctx, string(target), string(event), payload, string(sender)); err != nil {
		logging.Warn(ctx, "failed to relay webrtc signal via bus",
			zap.String("room_id", string(r.ID)), zap.String("target", string(target)), zap.Error(err))
	}
}
