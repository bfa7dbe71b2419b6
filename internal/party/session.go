package party

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/codecast/watchparty/internal/repository/video"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrPartyFull     = errors.New("party is full")
)

// Participant is one connected identity inside a session. The gateway owns
// the websocket; the session only ever touches the send queue, so a slow
// connection cannot stall the session's serialization point.
type Participant struct {
	ID string

	send chan Event
	// guarded by the owning session's mutex
	closed bool
}

func NewParticipant(id string, sendBuffer int) *Participant {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	return &Participant{
		ID:   id,
		send: make(chan Event, sendBuffer),
	}
}

// Recv returns the outbound queue drained by the gateway's writer goroutine.
// The channel is closed when the participant is removed from its session.
func (p *Participant) Recv() <-chan Event {
	return p.send
}

// Session is one watch party room: a roster of participants, the shared
// playback state and the chat relay, bound to exactly one video for its
// whole lifetime. All state mutation is serialized through s.mu; different
// sessions process independently and in parallel.
type Session struct {
	PartyID string
	Video   video.Video

	logger       *slog.Logger
	membersLimit int

	mu     sync.Mutex
	closed bool
	// live connections attached to this session, including handshakes the
	// registry has handed out but that have not joined yet. The session is
	// torn down only when refs drops to zero. Invariant: refs is never below
	// the roster size, since every roster entry's connection holds one.
	refs     int
	roster   map[string]*Participant
	playback PlaybackState
}

func newSession(partyID string, v video.Video, membersLimit int, logger *slog.Logger) *Session {
	return &Session{
		PartyID:      partyID,
		Video:        v,
		logger:       logger,
		membersLimit: membersLimit,
		roster:       make(map[string]*Participant),
		playback: PlaybackState{
			IsPlaying:       false,
			PositionSeconds: 0,
			UpdatedAt:       time.Now(),
		},
	}
}

// retain is called by the registry under its own lock before handing the
// session out, so a pending join can never race with removal.
func (s *Session) retain() {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
}

// Join adds the participant to the roster and returns the full state
// snapshot. The snapshot is enqueued on the joiner's own queue ahead of any
// broadcast, so it is always observed first. Rejoining an identity that is
// already present replaces the prior connection; the stale queue is closed
// and its websocket torn down by the gateway writer.
func (s *Session) Join(p *Participant) (StateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return StateSnapshot{}, ErrSessionClosed
	}

	if prior, ok := s.roster[p.ID]; ok {
		s.logger.Debug("replacing stale connection", "party_id", s.PartyID, "user_id", p.ID)
		s.closeParticipantLocked(prior)
	} else if s.membersLimit > 0 && len(s.roster) >= s.membersLimit {
		return StateSnapshot{}, ErrPartyFull
	}
	s.roster[p.ID] = p

	snapshot := s.snapshotLocked()
	// the joiner's queue is fresh, this cannot block
	p.send <- snapshot

	s.broadcastLocked(UserJoined{
		UserID: p.ID,
		Roster: s.rosterIDsLocked(),
	})

	return snapshot, nil
}

// Leave removes the participant and reports whether the session has no
// connections left, in which case the caller must release it through the
// registry. A stale connection that was already replaced only drops its
// reference; the roster entry belongs to its successor.
func (s *Session) Leave(p *Participant) (empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.roster[p.ID]; ok && current == p {
		delete(s.roster, p.ID)
		s.broadcastLocked(UserLeft{
			UserID: p.ID,
			Roster: s.rosterIDsLocked(),
		})
	}
	s.closeParticipantLocked(p)

	// a participant that never held a reference through the registry must
	// not drive the count below the live roster
	if s.refs > len(s.roster) {
		s.refs--
	}
	return s.refs == 0 && !s.closed
}

// ApplyAction stamps the action with the next session-local sequence number
// and applies it last-writer-wins. The resulting full state is broadcast to
// every participant, the originator included. An unknown action leaves the
// state, sequence included, untouched.
func (s *Session) ApplyAction(actorID string, action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	seq := s.playback.LastSeq + 1
	if err := s.playback.apply(seq, actorID, action, time.Now()); err != nil {
		return err
	}

	s.broadcastLocked(s.playback)
	return nil
}

// Chat relays the message to all participants including the sender. Nothing
// is stored.
func (s *Session) Chat(senderID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	s.broadcastLocked(ChatMessage{
		SenderID: senderID,
		Text:     text,
		SentAt:   time.Now(),
	})
	return nil
}

// Send enqueues an event for a single participant, e.g. an error response.
// Reports false if the participant was already removed or its queue is full.
func (s *Session) Send(p *Participant, ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.closed {
		return false
	}
	select {
	case p.send <- ev:
		return true
	default:
		return false
	}
}

// Snapshot returns the current playback state.
func (s *Session) Snapshot() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback
}

// Roster returns the sorted participant ids.
func (s *Session) Roster() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rosterIDsLocked()
}

func (s *Session) snapshotLocked() StateSnapshot {
	return StateSnapshot{
		PartyID:  s.PartyID,
		Video:    s.Video,
		Roster:   s.rosterIDsLocked(),
		Playback: s.playback,
	}
}

func (s *Session) rosterIDsLocked() []string {
	ids := maps.Keys(s.roster)
	slices.Sort(ids)
	return ids
}

// broadcastLocked fans the event out to every participant's queue without
// blocking. A participant whose queue is full is cut loose: its queue is
// closed, the gateway writer closes the websocket, and the remaining
// participants are told it left. Delivery failures never surface to the
// event's originator.
func (s *Session) broadcastLocked(ev Event) {
	var dropped []*Participant
	for _, p := range s.roster {
		if p.closed {
			continue
		}
		select {
		case p.send <- ev:
		default:
			dropped = append(dropped, p)
		}
	}

	var removed []string
	for _, p := range dropped {
		s.logger.Debug("dropping unresponsive participant", "party_id", s.PartyID, "user_id", p.ID)
		s.closeParticipantLocked(p)
		if s.roster[p.ID] == p {
			delete(s.roster, p.ID)
			removed = append(removed, p.ID)
		}
	}
	for _, id := range removed {
		s.broadcastLocked(UserLeft{
			UserID: id,
			Roster: s.rosterIDsLocked(),
		})
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, p := range s.roster {
		s.closeParticipantLocked(p)
		delete(s.roster, id)
	}
}

func (s *Session) closeParticipantLocked(p *Participant) {
	if p.closed {
		return
	}
	p.closed = true
	close(p.send)
}
