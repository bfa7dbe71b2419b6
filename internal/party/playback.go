package party

import (
	"errors"
	"time"
)

var ErrUnknownAction = errors.New("unknown playback action")

type ActionKind string

const (
	ActionPlay  ActionKind = "play"
	ActionPause ActionKind = "pause"
	ActionSeek  ActionKind = "seek"
)

// Action is a playback mutation submitted by a participant. Value is only
// meaningful for seek.
type Action struct {
	Kind  ActionKind
	Value float64
}

// PlaybackState is the authoritative shared play/pause/position record.
// LastSeq is stamped by the owning session at the moment an action is
// accepted and is monotonically non-decreasing for the session's lifetime.
type PlaybackState struct {
	IsPlaying       bool      `json:"is_playing"`
	PositionSeconds float64   `json:"position_seconds"`
	LastSeq         int64     `json:"last_seq"`
	LastActorID     string    `json:"last_actor_id"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (st PlaybackState) EventType() string { return "state-update" }

// apply mutates the state last-writer-wins. Position is not advanced
// server-side while playing; clients advance locally and resynchronize on
// the next broadcast.
func (st *PlaybackState) apply(seq int64, actorID string, action Action, now time.Time) error {
	switch action.Kind {
	case ActionPlay:
		st.IsPlaying = true
	case ActionPause:
		st.IsPlaying = false
	case ActionSeek:
		position := action.Value
		if position < 0 {
			position = 0
		}
		st.PositionSeconds = position
	default:
		return ErrUnknownAction
	}

	st.LastSeq = seq
	st.LastActorID = actorID
	st.UpdatedAt = now

	return nil
}
