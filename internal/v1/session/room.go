package session

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/catalog"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/metrics"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/scheduler"
	"go.uber.org/zap"
)

const (
	wordPickDeadline = 10 * time.Second
	maxHistoryLength = 200

	// firstHintFraction and secondHintFraction are the fractions of the
	// turn elapsed at which another letter is revealed.
	firstHintFraction  = 0.5
	secondHintFraction = 0.75
)

// Room holds everything about one game: who's in it, whose turn it is,
// what word is being drawn, and the chat/guess history. All mutating
// router cases acquire the write lock before calling a handler; handlers
// assume the lock is already held.
type Room struct {
	ID RoomIDType
	mu sync.RWMutex

	players map[UserIDType]*Player
	clients map[UserIDType]*Client
	adminID UserIDType

	status   RoomStatus
	phase    TurnPhase
	settings RoomSettings

	drawerQueue     *list.List // of UserIDType, this round's remaining drawers
	currentDrawer   UserIDType
	currentWord     string
	wordChoices     []string
	usedWords       map[string]bool
	round           int
	skipRequested   bool
	turnDrawerBonus int // sum of drawer bonuses earned so far this turn
	hintRevealCount int // letters revealed so far this turn, for late joiners

	canvasSnapshot *DrawingPayload // latest filtered stroke batch, cleared on turn change

	history          *list.List // of GuessMessage
	maxHistoryLength int

	kickBallots  map[UserIDType]map[UserIDType]struct{} // target -> voters
	voiceMembers map[UserIDType]bool                    // user -> muted

	wordTimer  *scheduler.TurnTimer
	turnTimer  *scheduler.TurnTimer
	hintTimer  *scheduler.TurnTimer
	hintTimer2 *scheduler.TurnTimer

	catalog *catalog.Catalog
	onEmpty func(RoomIDType)
	bus     BusService
}

// NewRoom creates an empty, waiting-status room with the given settings.
// onEmptyCallback lets the hub clean it up once the last player leaves;
// busService is nil in single-instance mode.
func NewRoom(id RoomIDType, cat *catalog.Catalog, onEmptyCallback func(RoomIDType), busService BusService, settings RoomSettings) *Room {
	room := &Room{
		ID:      id,
		players: make(map[UserIDType]*Player),
		clients: make(map[UserIDType]*Client),

		status:   RoomStatusWaiting,
		phase:    TurnPhaseNone,
		settings: settings,

		drawerQueue: list.New(),
		usedWords:   make(map[string]bool),

		history:          list.New(),
		maxHistoryLength: maxHistoryLength,

		kickBallots:  make(map[UserIDType]map[UserIDType]struct{}),
		voiceMembers: make(map[UserIDType]bool),

		wordTimer:  scheduler.New(string(id)),
		turnTimer:  scheduler.New(string(id)),
		hintTimer:  scheduler.New(string(id)),
		hintTimer2: scheduler.New(string(id)),

		catalog: cat,
		onEmpty: onEmptyCallback,
		bus:     busService,
	}

	if busService != nil {
		room.subscribeToRedis()
		if settings.RoomType == RoomTypePublic {
			go func() {
				if err := busService.SetAdd(context.Background(), joinableRoomsKey, string(id)); err != nil {
					logging.Warn(context.Background(), "failed to mark room joinable", zap.String("room_id", string(id)), zap.Error(err))
				}
			}()
		}
	}

	return room
}

// handleClientConnect admits a client: the first-ever joiner becomes
// admin, every subsequent join keeps the existing admin. A reconnecting
// user (same UserID already a Player) simply rebinds its Client.
func (r *Room) handleClientConnect(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, reconnecting := r.players[client.UserID]
	if !reconnecting && len(r.players) >= r.settings.MaxPlayers {
		client.sendMessage(Message{Event: EventError, Payload: ErrorPayload{
			Code: "room_full", Message: "this room is already at its player limit",
		}})
		client.conn.Close()
		return
	}

	r.clients[client.UserID] = client
	client.setConnected(true)

	if existing, ok := r.players[client.UserID]; ok {
		existing.Connected = true
		existing.DisplayName = client.DisplayName
	} else {
		r.players[client.UserID] = &Player{
			ID:          client.UserID,
			DisplayName: client.DisplayName,
			JoinedAt:    time.Now(),
			Connected:   true,
		}
		r.drawerQueue.PushBack(client.UserID)

		if r.adminID == "" {
			r.adminID = client.UserID
			logging.Info(context.Background(), "first player became admin",
				zap.String("room_id", string(r.ID)), zap.String("user_id", string(client.UserID)))
		}
	}

	metrics.RoomParticipants.WithLabelValues(string(r.ID)).Set(float64(len(r.players)))

	ctx := context.Background()
	r.sendRoomStateToClient(ctx, client)

	members := make([]PlayerView, 0, len(r.players))
	for _, p := range r.players {
		members = append(members, playerView(p))
	}
	client.sendMessage(Message{Event: EventPresenceState, Payload: PresenceStatePayload{Members: members, AdminID: r.adminID}})

	r.broadcastWithOptions(ctx, EventPresenceDiff, PresenceDiffPayload{
		Joined:  []PlayerView{playerView(r.players[client.UserID])},
		AdminID: r.adminID,
	}, client.UserID, false)
}

// handleClientDisconnect marks a player offline rather than removing
// them outright, so a brief network blip doesn't forfeit their score or
// drawer-queue position. The room empties, and the hub's grace-period
// cleanup fires, only once every player has been offline long enough
// that the hub's own timer expires.
func (r *Room) handleClientDisconnect(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, client.UserID)
	close(client.send)

	player, ok := r.players[client.UserID]
	if !ok {
		return
	}
	player.Connected = false
	delete(r.voiceMembers, client.UserID)

	ctx := context.Background()
	r.reassignAdminIfNeeded(ctx)

	logging.Info(ctx, "client disconnected", zap.String("room_id", string(r.ID)), zap.String("user_id", string(client.UserID)))

	r.broadcastWithOptions(ctx, EventPresenceDiff, PresenceDiffPayload{
		Left:    []UserIDType{client.UserID},
		AdminID: r.adminID,
	}, "", false)

	if client.UserID == r.currentDrawer && r.phase != TurnPhaseNone {
		r.endTurnLocked(ctx, "drawer_left")
	}

	if r.allDisconnected() && r.onEmpty != nil {
		go func() {
			defer func() { recover() }()
			r.onEmpty(r.ID)
		}()
	}
}

func (r *Room) allDisconnected() bool {
	for _, p := range r.players {
		if p.Connected {
			return false
		}
	}
	return true
}

// router is the single dispatch point for every inbound command. It
// acquires the write lock so handlers never have to think about
// concurrent mutation.
func (r *Room) router(ctx context.Context, client *Client, msg *Message) {
	start := time.Now()
	defer func() {
		metrics.MessageProcessingDuration.WithLabelValues(string(msg.Event)).Observe(time.Since(start).Seconds())
		metrics.WebsocketEvents.WithLabelValues(string(msg.Event), "success").Inc()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	switch msg.Event {
	case EventNewMessage:
		r.handleNewMessage(ctx, client, msg.Payload)
	case EventStartGame:
		r.handleStartGame(ctx, client)
	case EventStartTurn:
		r.handleStartTurn(ctx, client, msg.Payload)
	case EventDrawing:
		r.handleDrawing(ctx, client, msg.Payload)
	case EventDrawingClear:
		r.handleDrawingClear(ctx, client)
	case EventSkipWords:
		r.handleSkipWords(ctx, client)
	case EventUpdateRoomSettings:
		r.handleUpdateRoomSettings(ctx, client, msg.Payload)
	case EventVoteToKick:
		r.handleVoteKick(ctx, client, msg.Payload)
	case EventVoiceJoin:
		r.handleVoiceJoin(ctx, client)
	case EventVoiceLeave:
		r.handleVoiceLeave(ctx, client)
	case EventVoiceMute:
		r.handleVoiceMute(ctx, client, msg.Payload)
	case EventWebRTCOffer:
		r.handleWebRTCOffer(ctx, client, msg.Payload)
	case EventWebRTCAnswer:
		r.handleWebRTCAnswer(ctx, client, msg.Payload)
	case EventICECandidate:
		r.handleICECandidate(ctx, client, msg.Payload)
	case EventPing:
		// heartbeat, no-op
	default:
		logging.Warn(ctx, "unknown event", zap.String("event", string(msg.Event)))
	}
}

// broadcast sends event/payload to every connected player.
func (r *Room) broadcast(ctx context.Context, event Event, payload any) {
	r.broadcastWithOptions(ctx, event, payload, "", false)
}

// broadcastWithOptions is the shared send path: it fans out locally and,
// unless skipRedis is set (the message just arrived *from* Redis), also
// publishes to the room's pub/sub channel so other pods' clients receive
// it. Caller must hold the room lock.
func (r *Room) broadcastWithOptions(ctx context.Context, event Event, payload any, excludeSenderID UserIDType, skipRedis bool) {
	msg := Message{Event: event, Payload: payload}
	raw, err := json.Marshal(msg)
	if err != nil {
		logging.Error(ctx, "failed to marshal broadcast", zap.Error(err))
		return
	}

	for uid, c := range r.clients {
		if excludeSenderID != "" && uid == excludeSenderID {
			continue
		}
		select {
		case c.send <- raw:
		default:
			logging.Warn(ctx, "client send channel full, dropping message", zap.String("user_id", string(uid)))
		}
	}

	if !skipRedis {
		go r.publishToRedis(ctx, event, payload, excludeSenderID)
	}
}

func (r *Room) sendToPlayer(uid UserIDType, msg Message) {
	c, ok := r.clients[uid]
	if !ok {
		return
	}
	c.sendMessage(msg)
}

func (r *Room) sendRoomStateToClient(ctx context.Context, client *Client) {
	client.sendMessage(Message{Event: EventRoomInfo, Payload: r.roomStateLocked()})
	if r.status == RoomStatusActive && r.canvasSnapshot != nil {
		client.sendMessage(Message{Event: EventDrawing, Payload: r.canvasSnapshot})
	}
}

func (r *Room) broadcastRoomState(ctx context.Context) {
	r.broadcast(ctx, EventRoomInfo, r.roomStateLocked())
}

func (r *Room) roomStateLocked() RoomStatePayload {
	players := make([]PlayerView, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, playerView(p))
	}

	history := make([]GuessMessage, 0, r.history.Len())
	for e := r.history.Front(); e != nil; e = e.Next() {
		if gm, ok := e.Value.(GuessMessage); ok {
			history = append(history, gm)
		}
	}

	payload := RoomStatePayload{
		RoomID:   r.ID,
		Status:   r.status,
		Phase:    r.phase,
		AdminID:  r.adminID,
		Settings: r.settings,
		Players:  players,
		History:  history,
	}
	if r.status == RoomStatusActive {
		payload.DrawerID = r.currentDrawer
		payload.WordLength = len(r.currentWord)
		payload.Deadline = r.turnDeadlineUnix()
		if r.phase == TurnPhaseDrawing && r.hintRevealCount > 0 {
			payload.WordHint = revealHint(r.currentWord, r.hintRevealCount)
		}
	}
	return payload
}

func (r *Room) turnDeadlineUnix() int64 {
	remaining := r.turnTimer.Remaining()
	if remaining <= 0 {
		return 0
	}
	return time.Now().Add(remaining).Unix()
}

func playerView(p *Player) PlayerView {
	return PlayerView{
		UserID:      p.ID,
		DisplayName: p.DisplayName,
		Score:       p.Score,
		Connected:   p.Connected,
	}
}

func newGuessID() GuessID {
	return GuessID(uuid.NewString())
}

func (r *Room) addHistory(gm GuessMessage) {
	r.history.PushBack(gm)
	for r.history.Len() > r.maxHistoryLength {
		r.history.Remove(r.history.Front())
	}
}

