// Package session implements the socket front-end: authenticated WebSocket
// connections, room membership, and the command/event protocol that drives
// a single draw-and-guess game room.
package session

import "time"

// UserIDType identifies a player across reconnects. It comes from the
// auth service's token subject claim.
type UserIDType string

// RoomIDType identifies a room. Rooms are created on first join and
// removed once the last player leaves and the grace period elapses.
type RoomIDType string

// DisplayNameType is the human-readable name shown in the UI.
type DisplayNameType string

// GuessID identifies a single chat/guess message in a room's history.
type GuessID string

// RoomStatus is the top-level phase of a room's lifecycle.
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"  // lobby, no turn in progress
	RoomStatusActive   RoomStatus = "active"   // a turn is in progress
	RoomStatusFinished RoomStatus = "finished" // final results shown
)

// TurnPhase refines RoomStatusActive into the two sub-phases a turn goes
// through: the drawer is still picking a word, or the round clock is
// running and guesses are being accepted.
type TurnPhase string

const (
	TurnPhaseNone          TurnPhase = ""
	TurnPhaseSelectingWord TurnPhase = "selecting_word"
	TurnPhaseDrawing       TurnPhase = "drawing"
)

// Difficulty selects which word-catalog tier a room's word choices are
// drawn from; scoring does not depend on it.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// RoomType controls whether join-random may place a stranger into this
// room.
type RoomType string

const (
	RoomTypePublic  RoomType = "public"
	RoomTypePrivate RoomType = "private"
)

// allowedMaxRounds and allowedTurnTimeSec are the only values
// update_room_settings accepts, matching the fixed option lists a
// client's settings form presents.
var (
	allowedMaxRounds   = map[int]bool{1: true, 2: true, 3: true, 5: true, 10: true}
	allowedTurnTimeSec = map[int]bool{30: true, 45: true, 60: true, 90: true, 120: true}
)

// RoomSettings is the admin-configurable shape of a room, changeable
// only while the room is waiting for start_game.
type RoomSettings struct {
	MaxPlayers   int        `json:"maxPlayers"`
	MaxRounds    int        `json:"maxRounds"`
	TurnTimeSec  int        `json:"turnTimeSec"`
	HintsAllowed bool       `json:"hintsAllowed"`
	Difficulty   Difficulty `json:"difficulty"`
	RoomType     RoomType   `json:"roomType"`
}

// DefaultRoomSettings is applied to every room at creation time until an
// admin changes them via update_room_settings.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		MaxPlayers:   8,
		MaxRounds:    3,
		TurnTimeSec:  60,
		HintsAllowed: true,
		Difficulty:   DifficultyMedium,
		RoomType:     RoomTypePublic,
	}
}

// TurnDuration converts the configured turn_time_sec into a duration for
// the scheduler.
func (s RoomSettings) TurnDuration() time.Duration {
	return time.Duration(s.TurnTimeSec) * time.Second
}

// Validate rejects a settings value outside the fixed option lists §3
// defines for each field.
func (s RoomSettings) Validate() error {
	if s.MaxPlayers < 2 || s.MaxPlayers > 8 {
		return errInvalidMaxPlayers
	}
	if !allowedMaxRounds[s.MaxRounds] {
		return errInvalidMaxRounds
	}
	if !allowedTurnTimeSec[s.TurnTimeSec] {
		return errInvalidTurnTime
	}
	switch s.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return errInvalidDifficulty
	}
	switch s.RoomType {
	case RoomTypePublic, RoomTypePrivate:
	default:
		return errInvalidRoomType
	}
	return nil
}

// VoiceMember is one participant's state in the voice channel: present
// and, optionally, self-muted.
type VoiceMember struct {
	UserID UserIDType `json:"userId"`
	Muted  bool       `json:"muted"`
}

// Player is a single participant's state within a room, held only in
// the room's in-memory map for the life of the game.
type Player struct {
	ID          UserIDType      `json:"userId"`
	DisplayName DisplayNameType `json:"displayName"`
	Score       int             `json:"score"`
	HasGuessed  bool            `json:"hasGuessed"`
	JoinedAt    time.Time       `json:"joinedAt"`
	Connected   bool            `json:"connected"`
}

// GuessMessage is a single chat-box entry: either an ordinary message, a
// wrong guess, or (after the fact) a correct guess reveal. Close-but-wrong
// guesses are flagged so the client can render the "so close!" hint
// without revealing the word.
type GuessMessage struct {
	ID        GuessID         `json:"id"`
	UserID    UserIDType      `json:"userId"`
	Name      DisplayNameType `json:"displayName"`
	Text      string          `json:"text"`
	Timestamp int64           `json:"timestamp"`
	Correct   bool            `json:"correct"`
	Close     bool            `json:"close,omitempty"`
}

// Validate rejects empty or oversized guesses before they reach room
// state. Length limit matches the chat box's practical input limit.
func (g GuessMessage) Validate() error {
	if len(g.Text) == 0 {
		return errGuessEmpty
	}
	if len(g.Text) > 300 {
		return errGuessTooLong
	}
	return nil
}
