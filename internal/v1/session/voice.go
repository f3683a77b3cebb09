package session

import "context"

// The voice channel is a lightweight presence list layered on top of
// the WebRTC signaling relay in handlers_webrtc.go: joining/leaving/
// muting only update r.voiceMembers and broadcast the new membership,
// the actual audio negotiation happens peer-to-peer via the offer/
// answer/ICE events.

func (r *Room) handleVoiceJoin(ctx context.Context, client *Client) {
	if _, ok := r.players[client.UserID]; !ok {
		return
	}
	r.voiceMembers[client.UserID] = false
	r.broadcastVoiceState(ctx)
}

func (r *Room) handleVoiceLeave(ctx context.Context, client *Client) {
	if _, ok := r.voiceMembers[client.UserID]; !ok {
		return
	}
	delete(r.voiceMembers, client.UserID)
	r.broadcastVoiceState(ctx)
}

func (r *Room) handleVoiceMute(ctx context.Context, client *Client, payload any) {
	if _, ok := r.voiceMembers[client.UserID]; !ok {
		return
	}
	p, ok := assertPayload[VoiceMutePayload](payload)
	if !ok {
		return
	}
	r.voiceMembers[client.UserID] = p.Muted
	r.broadcastVoiceState(ctx)
}

func (r *Room) broadcastVoiceState(ctx context.Context) {
	members := make([]VoiceMember, 0, len(r.voiceMembers))
	for uid, muted := range r.voiceMembers {
		members = append(members, VoiceMember{UserID: uid, Muted: muted})
	}
	r.broadcast(ctx, EventVoiceStateChanged, VoiceStateChangedPayload{Members: members})
}
