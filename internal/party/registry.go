package party

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codecast/watchparty/internal/repository/video"
)

type iVideoGetter interface {
	GetVideo(ctx context.Context, videoID string) (video.Video, error)
}

type Config struct {
	// MembersLimit caps participants per session. Zero means unlimited.
	MembersLimit int
	// SendBuffer is the per-participant outbound queue size.
	SendBuffer int
}

// Registry is the process-wide party-id to session mapping. Sessions are
// created on first join and removed when their last connection detaches.
// Its lock covers only the map itself; session state has its own, narrower
// serialization point.
type Registry struct {
	videos iVideoGetter
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(videos iVideoGetter, config Config, logger *slog.Logger) *Registry {
	return &Registry{
		videos:   videos,
		config:   config,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate resolves the session for partyID, constructing it on first
// join. Exactly one session is ever constructed per id even when joins
// race. The returned session is retained for the caller's connection and
// must be balanced by Release once the connection detaches. For an existing
// session the caller's videoID is ignored; the session's video is immutable.
func (r *Registry) GetOrCreate(ctx context.Context, partyID, videoID string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[partyID]; ok {
		s.retain()
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	// video lookup is network I/O, keep it outside the registry lock
	v, err := r.videos.GetVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve video %q: %w", videoID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[partyID]; ok {
		s.retain()
		return s, nil
	}

	s := newSession(partyID, v, r.config.MembersLimit, r.logger)
	s.retain()
	r.sessions[partyID] = s
	r.logger.Info("session created", "party_id", partyID, "video_id", v.ID)

	return s, nil
}

// Release drops the caller's reference on the session and tears it down if
// it was the last one. The emptiness check is re-done under the registry
// lock, so a session that acquired a new connection in the meantime
// survives.
func (r *Registry) Release(s *Session, p *Participant) {
	if !s.Leave(p) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[s.PartyID] != s {
		return
	}

	s.mu.Lock()
	empty := s.refs == 0 && !s.closed
	if empty {
		s.closed = true
	}
	s.mu.Unlock()

	if empty {
		delete(r.sessions, s.PartyID)
		r.logger.Info("session removed", "party_id", s.PartyID)
	}
}

// Close tears down every live session. Used on shutdown; connections
// observe their queues closing and unwind through the gateway.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.close()
		delete(r.sessions, id)
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// NewParticipant builds a participant with the registry's configured
// outbound queue size.
func (r *Registry) NewParticipant(userID string) *Participant {
	return NewParticipant(userID, r.config.SendBuffer)
}
