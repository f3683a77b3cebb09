package session

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/singhalkarun/scribble/backend/go/internal/v1/catalog"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/guess"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/scheduler"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/scoring"
	"go.uber.org/zap"
)

// reassignAdminIfNeeded promotes the earliest-joined still-connected
// player to admin when the current admin has gone offline. It is a
// generalization of "first joiner becomes host": instead of a fixed
// assignment, the room keeps reaching for the next most senior player
// as people come and go.
func (r *Room) reassignAdminIfNeeded(ctx context.Context) {
	if admin, ok := r.players[r.adminID]; ok && admin.Connected {
		return
	}
	previous := r.adminID

	var next *Player
	for _, p := range r.players {
		if !p.Connected {
			continue
		}
		if next == nil || p.JoinedAt.Before(next.JoinedAt) {
			next = p
		}
	}

	if next == nil {
		r.adminID = ""
		return
	}

	r.adminID = next.ID
	logging.Info(ctx, "reassigned room admin",
		zap.String("room_id", string(r.ID)), zap.String("user_id", string(next.ID)))

	if r.adminID != previous {
		r.broadcast(ctx, EventAdminChanged, AdminChangedPayload{AdminID: r.adminID})
	}
}

// handleStartGame begins the first turn. Only the admin may start the
// game, from RoomStatusWaiting (the lobby) or RoomStatusFinished (play
// again), once there are at least two players.
func (r *Room) handleStartGame(ctx context.Context, client *Client) {
	if r.status != RoomStatusWaiting && r.status != RoomStatusFinished {
		return
	}
	if client.UserID != r.adminID {
		r.sendToPlayer(client.UserID, Message{Event: EventError, Payload: ErrorPayload{
			Code: "not_admin", Message: "only the admin can start the game",
		}})
		return
	}
	if len(r.players) < 2 {
		r.sendToPlayer(client.UserID, Message{Event: EventError, Payload: ErrorPayload{
			Code: "not_enough_players", Message: "need at least 2 players to start",
		}})
		return
	}

	if r.status == RoomStatusFinished {
		for _, p := range r.players {
			p.Score = 0
		}
	}

	r.round = 1
	r.usedWords = make(map[string]bool)
	r.rebuildDrawerQueue()
	r.status = RoomStatusActive
	if r.bus != nil {
		go func() {
			if err := r.bus.SetRem(context.Background(), joinableRoomsKey, string(r.ID)); err != nil {
				logging.Warn(context.Background(), "failed to clear room from joinable set", zap.String("room_id", string(r.ID)), zap.Error(err))
			}
		}()
	}
	r.broadcast(ctx, EventGameStarted, GameStartedPayload{Round: r.round})
	r.startWordSelectionLocked(ctx)
}

// handleStartTurn is the drawer's response to the word-choice offer.
func (r *Room) handleStartTurn(ctx context.Context, client *Client, payload any) {
	if r.phase != TurnPhaseSelectingWord || client.UserID != r.currentDrawer {
		return
	}
	p, ok := assertPayload[StartTurnPayload](payload)
	logHelper(ok, client.UserID, "start_turn", r.ID)
	if !ok {
		return
	}

	chosen := strings.ToLower(strings.TrimSpace(p.Word))
	valid := false
	for _, w := range r.wordChoices {
		if w == chosen {
			valid = true
			break
		}
	}
	if !valid {
		return
	}

	r.wordTimer.Stop()
	r.beginDrawingLocked(ctx, chosen)
}

// rebuildDrawerQueue refills the round's drawer order with every
// connected player, preserving join order.
func (r *Room) rebuildDrawerQueue() {
	r.drawerQueue.Init()
	ordered := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		if p.Connected {
			ordered = append(ordered, p)
		}
	}
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].JoinedAt.Before(ordered[i].JoinedAt) {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	for _, p := range ordered {
		r.drawerQueue.PushBack(p.ID)
	}
}

// startWordSelectionLocked pops the next drawer from the queue and
// offers them a choice of words. If the queue is empty, the round (and
// possibly the game) is over.
func (r *Room) startWordSelectionLocked(ctx context.Context) {
	front := r.drawerQueue.Front()
	if front == nil {
		r.round++
		if r.round > r.settings.MaxRounds {
			r.endGameLocked(ctx)
			return
		}
		r.usedWords = make(map[string]bool)
		r.rebuildDrawerQueue()
		front = r.drawerQueue.Front()
		if front == nil {
			r.endGameLocked(ctx)
			return
		}
	}
	r.drawerQueue.Remove(front)

	drawerID := front.Value.(UserIDType)
	if p, ok := r.players[drawerID]; !ok || !p.Connected {
		r.startWordSelectionLocked(ctx)
		return
	}

	r.currentDrawer = drawerID
	r.currentWord = ""
	r.phase = TurnPhaseSelectingWord
	r.skipRequested = false
	r.hintRevealCount = 0
	r.canvasSnapshot = nil
	for _, p := range r.players {
		p.HasGuessed = false
	}

	r.wordChoices = r.drawWordChoices(ctx)

	r.broadcast(ctx, EventDrawerAssigned, DrawerAssignedPayload{DrawerID: drawerID})
	r.sendToPlayer(drawerID, Message{Event: EventSelectWord, Payload: SelectWordPayload{Words: r.wordChoices}})
	r.broadcastRoomState(ctx)

	r.wordTimer.Start(wordPickDeadline, 0, nil, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.phase != TurnPhaseSelectingWord {
			return
		}
		word := r.wordChoices[0]
		r.sendToPlayer(r.currentDrawer, Message{Event: EventWordAutoSelected, Payload: WordAutoSelectedPayload{Word: word}})
		r.beginDrawingLocked(context.Background(), word)
	})
}

// drawWordChoices asks the catalog for a fresh trio in the room's
// configured difficulty, falling back to a filler word if the catalog
// has nothing left to offer.
func (r *Room) drawWordChoices(ctx context.Context) []string {
	choices := r.catalog.Suggest(ctx, catalog.Difficulty(r.settings.Difficulty), r.usedWords)
	if len(choices) == 0 {
		choices = []string{"sketch"}
	}
	return choices
}

// beginDrawingLocked starts the round clock for the chosen word,
// revealing letters partway through via hintTimer/hintTimer2 when the
// room allows hints.
func (r *Room) beginDrawingLocked(ctx context.Context, word string) {
	r.currentWord = word
	r.usedWords[word] = true
	r.phase = TurnPhaseDrawing
	r.turnDrawerBonus = 0
	r.hintRevealCount = 0

	turnDuration := r.settings.TurnDuration()
	deadline := time.Now().Add(turnDuration).Unix()
	r.broadcast(ctx, EventTurnStarted, TurnStartedPayload{
		DrawerID:   r.currentDrawer,
		WordLength: len(word),
		Deadline:   deadline,
		Round:      r.round,
	})
	r.broadcastRoomState(ctx)

	if r.settings.HintsAllowed {
		r.startHintTimer(r.hintTimer, turnDuration, firstHintFraction, 1)
		r.startHintTimer(r.hintTimer2, turnDuration, secondHintFraction, 2)
	}

	r.turnTimer.Start(turnDuration, 0, nil, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.phase != TurnPhaseDrawing {
			return
		}
		r.endTurnLocked(context.Background(), "timeout")
	})
}

// startHintTimer schedules one letter reveal at the given fraction of
// the turn's duration, bumping r.hintRevealCount to count.
func (r *Room) startHintTimer(timer *scheduler.TurnTimer, turnDuration time.Duration, fraction float64, count int) {
	timer.Start(time.Duration(float64(turnDuration)*fraction), 0, nil, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.phase != TurnPhaseDrawing {
			return
		}
		r.hintRevealCount = count
		r.broadcast(context.Background(), EventLetterReveal, LetterRevealPayload{
			Revealed: revealHint(r.currentWord, r.hintRevealCount),
		})
	})
}

// revealHint discloses the word's first count letters (always
// revealing non-letter characters such as spaces) and masks the rest.
func revealHint(word string, count int) string {
	if word == "" {
		return ""
	}
	runes := []rune(word)
	out := make([]rune, len(runes))
	revealed := 0
	for i, ru := range runes {
		if !unicode.IsLetter(ru) {
			out[i] = ru
			continue
		}
		if i == 0 || revealed < count {
			out[i] = ru
			revealed++
			continue
		}
		out[i] = '_'
	}
	return string(out)
}

// endTurnLocked stops the turn's timers, broadcasts the reveal and
// scoring summary, and advances to the next drawer. reason is one of
// all_guessed, timeout, or drawer_left.
func (r *Room) endTurnLocked(ctx context.Context, reason string) {
	r.turnTimer.Stop()
	r.hintTimer.Stop()
	r.hintTimer2.Stop()
	r.canvasSnapshot = nil

	scores := make([]PlayerView, 0, len(r.players))
	for _, p := range r.players {
		scores = append(scores, playerView(p))
	}

	r.broadcast(ctx, EventTurnOver, TurnOverPayload{
		Reason:      reason,
		Word:        r.currentWord,
		DrawerID:    r.currentDrawer,
		DrawerBonus: r.turnDrawerBonus,
		Scores:      scores,
	})

	r.phase = TurnPhaseNone
	r.startWordSelectionLocked(ctx)
}

// endGameLocked finalizes the match once every round has been played.
func (r *Room) endGameLocked(ctx context.Context) {
	r.status = RoomStatusFinished
	r.phase = TurnPhaseNone
	r.turnTimer.Stop()
	r.hintTimer.Stop()
	r.hintTimer2.Stop()
	r.wordTimer.Stop()
	r.canvasSnapshot = nil

	final := make([]PlayerView, 0, len(r.players))
	for _, p := range r.players {
		final = append(final, playerView(p))
	}

	r.broadcast(ctx, EventGameOver, GameOverPayload{Final: final, RoundsPlayed: r.round})
}

// handleNewMessage evaluates every chat line from a non-drawer as a
// guess attempt; the drawer's own messages pass through as ordinary
// chatter unless they'd leak the word, in which case they're dropped.
func (r *Room) handleNewMessage(ctx context.Context, client *Client, payload any) {
	p, ok := assertPayload[NewMessagePayload](payload)
	if !ok {
		return
	}

	gm := GuessMessage{
		ID:        newGuessID(),
		UserID:    client.UserID,
		Name:      client.DisplayName,
		Text:      p.Text,
		Timestamp: time.Now().Unix(),
	}
	if err := gm.Validate(); err != nil {
		r.sendToPlayer(client.UserID, Message{Event: EventError, Payload: ErrorPayload{Code: "invalid_message", Message: err.Error()}})
		return
	}

	if r.phase != TurnPhaseDrawing || r.currentWord == "" {
		r.addHistory(gm)
		r.broadcast(ctx, EventNewMessage, gm)
		return
	}

	if client.UserID == r.currentDrawer {
		if guess.FiltersDrawerMessage(r.currentWord, gm.Text) {
			return // would leak the word
		}
		r.addHistory(gm)
		r.broadcast(ctx, EventNewMessage, gm)
		return
	}

	player, ok := r.players[client.UserID]
	if !ok || player.HasGuessed {
		r.addHistory(gm)
		r.broadcast(ctx, EventNewMessage, gm)
		return
	}

	switch guess.Evaluate(r.currentWord, gm.Text) {
	case guess.Exact:
		gm.Correct = true
		player.HasGuessed = true
		remaining := r.turnTimer.Remaining()
		guesserPts, drawerBonus := scoring.Award(remaining, r.settings.TurnDuration(), scoring.DefaultConfig)
		player.Score += guesserPts
		r.addHistory(gm)
		r.broadcast(ctx, EventCorrectGuess, CorrectGuessPayload{UserID: client.UserID, DisplayName: client.DisplayName})
		r.broadcast(ctx, EventScoreUpdated, ScoreUpdatedPayload{UserID: player.ID, Score: player.Score})
		if drawer, ok := r.players[r.currentDrawer]; ok {
			drawer.Score += drawerBonus
			r.turnDrawerBonus += drawerBonus
			r.broadcast(ctx, EventScoreUpdated, ScoreUpdatedPayload{UserID: drawer.ID, Score: drawer.Score})
		}
		r.broadcastRoomState(ctx)

		if r.allGuessedLocked() {
			r.endTurnLocked(ctx, "all_guessed")
		}
	case guess.Close:
		gm.Close = true
		r.addHistory(gm)
		r.broadcast(ctx, EventSimilarWord, SimilarWordPayload{UserID: client.UserID, DisplayName: client.DisplayName})
	default:
		r.addHistory(gm)
		r.broadcast(ctx, EventNewMessage, gm)
	}
}

func (r *Room) allGuessedLocked() bool {
	for uid, p := range r.players {
		if uid == r.currentDrawer || !p.Connected {
			continue
		}
		if !p.HasGuessed {
			return false
		}
	}
	return true
}

// handleSkipWords lets the current drawer re-roll their word choices
// once per turn while still picking, drawing three fresh suggestions
// instead of ending the turn.
func (r *Room) handleSkipWords(ctx context.Context, client *Client) {
	if r.phase != TurnPhaseSelectingWord || client.UserID != r.currentDrawer || r.skipRequested {
		return
	}
	r.skipRequested = true
	r.wordChoices = r.drawWordChoices(ctx)
	r.sendToPlayer(client.UserID, Message{Event: EventSelectWord, Payload: SelectWordPayload{Words: r.wordChoices}})
}

// handleDrawing relays a canvas stroke/fill operation to every other
// player in the room and remembers it as the current snapshot so a
// late joiner can catch up on the drawing in progress.
func (r *Room) handleDrawing(ctx context.Context, client *Client, payload any) {
	if r.phase != TurnPhaseDrawing || client.UserID != r.currentDrawer {
		return
	}
	p, ok := assertPayload[DrawingPayload](payload)
	if !ok {
		return
	}
	r.canvasSnapshot = &p
	r.broadcastWithOptions(ctx, EventDrawing, p, client.UserID, false)
}

// handleDrawingClear lets the drawer wipe the canvas mid-turn.
func (r *Room) handleDrawingClear(ctx context.Context, client *Client) {
	if r.phase != TurnPhaseDrawing || client.UserID != r.currentDrawer {
		return
	}
	r.canvasSnapshot = nil
	r.broadcastWithOptions(ctx, EventDrawingClear, nil, client.UserID, false)
}

// handleUpdateRoomSettings lets the admin reconfigure the room while
// it is still in the lobby. Unset fields in the payload keep their
// current value; the merged result is validated as a whole before any
// field is applied.
func (r *Room) handleUpdateRoomSettings(ctx context.Context, client *Client, payload any) {
	if client.UserID != r.adminID {
		r.sendToPlayer(client.UserID, Message{Event: EventError, Payload: ErrorPayload{
			Code: "not_admin", Message: "only the admin can change room settings",
		}})
		return
	}
	if r.status != RoomStatusWaiting {
		r.sendToPlayer(client.UserID, Message{Event: EventError, Payload: ErrorPayload{
			Code: "game_in_progress", Message: "room settings can only change before the game starts",
		}})
		return
	}

	p, ok := assertPayload[UpdateRoomSettingsPayload](payload)
	logHelper(ok, client.UserID, "update_room_settings", r.ID)
	if !ok {
		return
	}

	next := r.settings
	if p.MaxPlayers != nil {
		next.MaxPlayers = *p.MaxPlayers
	}
	if p.MaxRounds != nil {
		next.MaxRounds = *p.MaxRounds
	}
	if p.TurnTimeSec != nil {
		next.TurnTimeSec = *p.TurnTimeSec
	}
	if p.HintsAllowed != nil {
		next.HintsAllowed = *p.HintsAllowed
	}
	if p.Difficulty != nil {
		next.Difficulty = Difficulty(*p.Difficulty)
	}
	if p.RoomType != nil {
		next.RoomType = RoomType(*p.RoomType)
	}

	if err := next.Validate(); err != nil {
		r.sendToPlayer(client.UserID, Message{Event: EventError, Payload: ErrorPayload{
			Code: "invalid_settings", Message: err.Error(),
		}})
		return
	}

	wasPublic := r.settings.RoomType == RoomTypePublic
	r.settings = next

	if r.bus != nil && wasPublic != (next.RoomType == RoomTypePublic) {
		go func() {
			ctx := context.Background()
			if next.RoomType == RoomTypePublic {
				if err := r.bus.SetAdd(ctx, joinableRoomsKey, string(r.ID)); err != nil {
					logging.Warn(ctx, "failed to mark room joinable", zap.String("room_id", string(r.ID)), zap.Error(err))
				}
			} else {
				if err := r.bus.SetRem(ctx, joinableRoomsKey, string(r.ID)); err != nil {
					logging.Warn(ctx, "failed to clear room from joinable set", zap.String("room_id", string(r.ID)), zap.Error(err))
				}
			}
		}()
	}

	r.broadcast(ctx, EventRoomSettingsUpdated, RoomSettingsUpdatedPayload{Settings: next})
	r.broadcastRoomState(ctx)
}
