package party

import (
	"time"

	"github.com/codecast/watchparty/internal/repository/video"
)

// Event is an outbound message fanned out to participant send queues. The
// gateway wraps it into the wire envelope using EventType as the type tag.
type Event interface {
	EventType() string
}

// StateSnapshot is delivered once to a newly joined connection, before any
// broadcast it may receive, so a joiner never waits on the next action to
// see correct state.
type StateSnapshot struct {
	PartyID  string        `json:"party_id"`
	Video    video.Video   `json:"video"`
	Roster   []string      `json:"roster"`
	Playback PlaybackState `json:"playback"`
}

func (StateSnapshot) EventType() string { return "state-snapshot" }

type UserJoined struct {
	UserID string   `json:"user_id"`
	Roster []string `json:"roster"`
}

func (UserJoined) EventType() string { return "user-joined" }

type UserLeft struct {
	UserID string   `json:"user_id"`
	Roster []string `json:"roster"`
}

func (UserLeft) EventType() string { return "user-left" }

// ChatMessage is relayed to every participant including the sender and is
// never retained after delivery.
type ChatMessage struct {
	SenderID string    `json:"sender_id"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}

func (ChatMessage) EventType() string { return "chat-message" }
