package session

import "errors"

var (
	errGuessEmpty   = errors.New("guess text cannot be empty")
	errGuessTooLong = errors.New("guess text cannot exceed 300 characters")

	errInvalidMaxPlayers = errors.New("max_players must be between 2 and 8")
	errInvalidMaxRounds  = errors.New("max_rounds must be one of 1, 2, 3, 5, 10")
	errInvalidTurnTime   = errors.New("turn_time_sec must be one of 30, 45, 60, 90, 120")
	errInvalidDifficulty = errors.New("difficulty must be easy, medium, or hard")
	errInvalidRoomType   = errors.New("room_type must be public or private")
)

// Event names the wire-protocol command or broadcast this message carries.
// Client-to-server commands and server-to-client events share the same
// envelope; see router() in room.go for the dispatch table.
type Event string

const (
	// Client -> server commands
	EventNewMessage         Event = "new_message"         // chat line or guess attempt
	EventStartGame          Event = "start_game"          // admin starts the match
	EventStartTurn          Event = "start_turn"          // drawer picks from the offered trio
	EventDrawing            Event = "drawing"             // canvas stroke/fill payload
	EventDrawingClear       Event = "drawing_clear"       // drawer clears the canvas
	EventSkipWords          Event = "skip_words"          // drawer's one-shot re-roll of word choices
	EventUpdateRoomSettings Event = "update_room_settings" // admin reconfigures the room before start
	EventVoteToKick         Event = "vote_to_kick"        // cast a kick ballot against a player
	EventVoiceJoin          Event = "voice_join"          // join the voice channel
	EventVoiceLeave         Event = "voice_leave"         // leave the voice channel
	EventVoiceMute          Event = "voice_mute"          // toggle self-mute in the voice channel
	EventWebRTCOffer        Event = "webrtc_offer"        // voice relay SDP offer
	EventWebRTCAnswer       Event = "webrtc_answer"       // voice relay SDP answer
	EventICECandidate       Event = "ice_candidate"       // voice relay ICE candidate
	EventPing               Event = "ping"                // heartbeat, no-op

	// Server -> client events
	EventRoomInfo            Event = "room_info"            // full snapshot sent on every transition
	EventPresenceState       Event = "presence_state"       // full membership snapshot sent to the joiner
	EventPresenceDiff        Event = "presence_diff"        // player joined/left/reconnected, sent to others
	EventGameStarted         Event = "game_started"         // waiting -> active(selecting_word)
	EventDrawerAssigned      Event = "drawer_assigned"      // next drawer chosen for this turn
	EventSelectWord          Event = "select_word"          // drawer-only: the 3 offered words
	EventWordAutoSelected    Event = "word_auto_selected"   // drawer-only: word chosen after the pick deadline
	EventTurnStarted         Event = "turn_started"         // new drawer, word length hint, deadline
	EventLetterReveal        Event = "letter_reveal"        // progressively revealed letters
	EventCorrectGuess        Event = "correct_guess"        // a non-drawer guessed the word, without revealing it
	EventSimilarWord         Event = "similar_word"         // a guess is close but not exact
	EventScoreUpdated        Event = "score_updated"        // one player's score changed
	EventTurnOver            Event = "turn_over"            // turn scoring summary
	EventGameOver            Event = "game_over"            // final leaderboard
	EventAdminChanged        Event = "admin_changed"        // admin role moved to another present player
	EventRoomSettingsUpdated Event = "room_settings_updated" // settings changed while waiting
	EventPlayerKicked        Event = "player_kicked"        // kick vote removed a player
	EventVoiceStateChanged   Event = "voice_state_changed"  // voice channel membership/mute changed
	EventError               Event = "error"                // rejected command, client-facing reason
)

// Message is the single JSON envelope carried over the WebSocket in both
// directions: {"event": "...", "payload": {...}}. Payload is left as any
// so inbound messages can hold a json.RawMessage (decoded lazily by each
// handler via assertPayload) while outbound messages hold a concrete
// struct that marshals directly.
type Message struct {
	Event   Event `json:"event"`
	Payload any   `json:"payload,omitempty"`
}

// --- Command payloads (client -> server) ---

type NewMessagePayload struct {
	Text string `json:"text"`
}

type StartTurnPayload struct {
	Word string `json:"word"`
}

// DrawingPayload is the fixed filtered-stroke schema; any other fields
// a client sends are dropped by assertPayload's strict unmarshal target.
type DrawingPayload struct {
	DrawMode    string    `json:"drawMode"` // "stroke" | "fill"
	StrokeColor string    `json:"strokeColor,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
	Paths       []float64 `json:"paths,omitempty"`
}

type UpdateRoomSettingsPayload struct {
	MaxPlayers   *int    `json:"maxPlayers,omitempty"`
	MaxRounds    *int    `json:"maxRounds,omitempty"`
	TurnTimeSec  *int    `json:"turnTimeSec,omitempty"`
	HintsAllowed *bool   `json:"hintsAllowed,omitempty"`
	Difficulty   *string `json:"difficulty,omitempty"`
	RoomType     *string `json:"roomType,omitempty"`
}

type VoteToKickPayload struct {
	TargetUserID UserIDType `json:"targetUserId"`
}

type VoiceMutePayload struct {
	Muted bool `json:"muted"`
}

type WebRTCOfferPayload struct {
	TargetUserID UserIDType `json:"targetUserId"`
	SDP          string     `json:"sdp"`
}

type WebRTCAnswerPayload struct {
	TargetUserID UserIDType `json:"targetUserId"`
	SDP          string     `json:"sdp"`
}

type ICECandidatePayload struct {
	TargetUserID UserIDType `json:"targetUserId"`
	Candidate    string     `json:"candidate"`
}

// --- Event payloads (server -> client) ---

type PresenceDiffPayload struct {
	Joined  []PlayerView `json:"joined,omitempty"`
	Left    []UserIDType `json:"left,omitempty"`
	AdminID UserIDType   `json:"adminId"`
}

// PresenceStatePayload is the full membership snapshot pushed once to a
// joiner, distinct from the incremental PresenceDiffPayload pushed to
// everyone already present.
type PresenceStatePayload struct {
	Members []PlayerView `json:"members"`
	AdminID UserIDType   `json:"adminId"`
}

type PlayerView struct {
	UserID      UserIDType      `json:"userId"`
	DisplayName DisplayNameType `json:"displayName"`
	Score       int             `json:"score"`
	Connected   bool            `json:"connected"`
}

type RoomStatePayload struct {
	RoomID     RoomIDType     `json:"roomId"`
	Status     RoomStatus     `json:"status"`
	Phase      TurnPhase      `json:"phase"`
	AdminID    UserIDType     `json:"adminId"`
	Settings   RoomSettings   `json:"settings"`
	Players    []PlayerView   `json:"players"`
	DrawerID   UserIDType     `json:"drawerId,omitempty"`
	WordLength int            `json:"wordLength,omitempty"`
	WordHint   string         `json:"wordHint,omitempty"`
	Deadline   int64          `json:"deadline,omitempty"`
	History    []GuessMessage `json:"history"`
}

type GameStartedPayload struct {
	Round int `json:"round"`
}

type DrawerAssignedPayload struct {
	DrawerID UserIDType `json:"drawerId"`
}

type SelectWordPayload struct {
	Words []string `json:"words"`
}

type WordAutoSelectedPayload struct {
	Word string `json:"word"`
}

type TurnStartedPayload struct {
	DrawerID   UserIDType `json:"drawerId"`
	WordLength int        `json:"wordLength"`
	Deadline   int64      `json:"deadline"`
	Round      int        `json:"round"`
}

type LetterRevealPayload struct {
	Revealed string `json:"revealed"` // underscores with revealed letters filled in
}

type CorrectGuessPayload struct {
	UserID      UserIDType      `json:"userId"`
	DisplayName DisplayNameType `json:"displayName"`
}

type SimilarWordPayload struct {
	UserID      UserIDType      `json:"userId"`
	DisplayName DisplayNameType `json:"displayName"`
}

type ScoreUpdatedPayload struct {
	UserID UserIDType `json:"userId"`
	Score  int        `json:"score"`
}

type TurnOverPayload struct {
	Reason      string       `json:"reason"` // all_guessed | timeout | drawer_left
	Word        string       `json:"word"`
	DrawerID    UserIDType   `json:"drawerId"`
	DrawerBonus int          `json:"drawerBonus"`
	Scores      []PlayerView `json:"scores"`
}

type GameOverPayload struct {
	Final        []PlayerView `json:"final"`
	RoundsPlayed int          `json:"roundsPlayed"`
}

type AdminChangedPayload struct {
	AdminID UserIDType `json:"adminId"`
}

type RoomSettingsUpdatedPayload struct {
	Settings RoomSettings `json:"settings"`
}

type PlayerKickedPayload struct {
	TargetUserID UserIDType `json:"targetUserId"`
}

type VoiceStateChangedPayload struct {
	Members []VoiceMember `json:"members"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
