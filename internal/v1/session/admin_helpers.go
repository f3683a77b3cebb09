package session

import (
	"context"

	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"go.uber.org/zap"
)

// handleVoteKick records one voter's ballot against a target player and
// applies the kick once at least half of the currently-connected players
// have voted for the same target. Generalizes the teacher's single-host-kicks-
// anyone admin action into a no-single-authority vote, since
// this domain has no fixed host role.
func (r *Room) handleVoteKick(ctx context.Context, client *Client, payload any) {
	p, ok := assertPayload[VoteToKickPayload](payload)
	logHelper(ok, client.UserID, "vote_to_kick", r.ID)
	if !ok {
		return
	}
	target := p.TargetUserID
	if target == client.UserID {
		return
	}
	if _, ok := r.players[target]; !ok {
		return
	}

	ballot, ok := r.kickBallots[target]
	if !ok {
		ballot = make(map[UserIDType]struct{})
		r.kickBallots[target] = ballot
	}
	ballot[client.UserID] = struct{}{}

	needed := kickThreshold(r.connectedCount())
	votes := r.countValidVotes(ballot)

	if votes >= needed {
		r.kickPlayerLocked(ctx, target)
	}
}

// countValidVotes discards ballots cast by players no longer connected,
// so someone who leaves can't keep a stale vote counted against a
// target forever.
func (r *Room) countValidVotes(ballot map[UserIDType]struct{}) int {
	count := 0
	for voter := range ballot {
		if p, ok := r.players[voter]; ok && p.Connected {
			count++
		}
	}
	return count
}

// connectedCount returns how many players currently have an open socket.
func (r *Room) connectedCount() int {
	n := 0
	for _, p := range r.players {
		if p.Connected {
			n++
		}
	}
	return n
}

// kickThreshold is ceil(present/2): at least half of the present
// players, so 1 of 1, 1 of 2, 2 of 3, 2 of 4, or 3 of 5 votes suffice.
func kickThreshold(present int) int {
	return (present + 1) / 2
}

// kickPlayerLocked removes a player entirely: closes their connection,
// drops them from the drawer queue, and clears any ballots naming them.
func (r *Room) kickPlayerLocked(ctx context.Context, target UserIDType) {
	wasDrawer := target == r.currentDrawer && r.phase != TurnPhaseNone

	r.broadcast(ctx, EventPlayerKicked, PlayerKickedPayload{TargetUserID: target})

	if c, ok := r.clients[target]; ok {
		c.conn.Close()
		delete(r.clients, target)
	}
	delete(r.players, target)
	delete(r.kickBallots, target)
	delete(r.voiceMembers, target)
	removeFromQueue(r.drawerQueue, target)

	logging.Info(ctx, "player kicked by vote",
		zap.String("room_id", string(r.ID)), zap.String("user_id", string(target)))

	if wasDrawer {
		r.endTurnLocked(ctx, "drawer_left")
	}

	r.reassignAdminIfNeeded(ctx)
	r.broadcastRoomState(ctx)
}
