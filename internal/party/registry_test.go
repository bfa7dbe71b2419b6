package party

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecast/watchparty/internal/repository/video"
	"github.com/codecast/watchparty/internal/repository/video/inmemory"
)

func TestGetOrCreateIsRaceSafe(t *testing.T) {
	r := newTestRegistry(Config{})

	const callers = 16
	sessions := make([]*Session, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.GetOrCreate(context.Background(), "party1", "v1")
			assert.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, r.Len(), "exactly one session per party id")
	for i := 1; i < callers; i++ {
		assert.Same(t, sessions[0], sessions[i])
	}
}

func TestVideoNotFoundBlocksSessionCreation(t *testing.T) {
	r := newTestRegistry(Config{})

	_, err := r.GetOrCreate(context.Background(), "party1", "missing")
	require.ErrorIs(t, err, video.ErrNotFound)
	assert.Equal(t, 0, r.Len())
}

func TestLastDisconnectTearsSessionDown(t *testing.T) {
	r := newTestRegistry(Config{})
	s, p1, _ := join(t, r, "party1", "u1")

	require.NoError(t, s.ApplyAction("u1", Action{Kind: ActionPlay}))
	require.NoError(t, s.ApplyAction("u1", Action{Kind: ActionSeek, Value: 55}))

	r.Release(s, p1)
	assert.Equal(t, 0, r.Len())

	// a new join with the same party id gets a brand-new session with
	// default playback state, not the old session's leftovers
	fresh, _, snapshot := join(t, r, "party1", "u2")
	assert.NotSame(t, s, fresh)
	assert.False(t, snapshot.Playback.IsPlaying)
	assert.Equal(t, float64(0), snapshot.Playback.PositionSeconds)
	assert.Equal(t, int64(0), snapshot.Playback.LastSeq)
}

func TestReleaseSparesSessionWithRemainingParticipants(t *testing.T) {
	r := newTestRegistry(Config{})
	s, p1, _ := join(t, r, "party1", "u1")
	_, p2, _ := join(t, r, "party1", "u2")

	r.Release(s, p1)
	assert.Equal(t, 1, r.Len(), "session with a live participant survives")
	assert.Equal(t, []string{"u2"}, s.Roster())

	r.Release(s, p2)
	assert.Equal(t, 0, r.Len())
}

func TestPendingJoinBlocksRemoval(t *testing.T) {
	r := newTestRegistry(Config{})
	s, p1, _ := join(t, r, "party1", "u1")

	// a second connection has been handed the session but not joined yet
	s2, err := r.GetOrCreate(context.Background(), "party1", "v1")
	require.NoError(t, err)
	require.Same(t, s, s2)

	r.Release(s, p1)
	require.Equal(t, 1, r.Len(), "session with a pending join must not be removed")

	p2 := r.NewParticipant("u2")
	_, err = s2.Join(p2)
	require.NoError(t, err)

	r.Release(s2, p2)
	assert.Equal(t, 0, r.Len())
}

func TestSessionVideoIsImmutable(t *testing.T) {
	videos := inmemory.NewRepo(
		video.Video{ID: "v1", URL: "http://example.com/v1.mp4"},
		video.Video{ID: "v2", URL: "http://example.com/v2.mp4"},
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRegistry(videos, Config{SendBuffer: 16}, logger)

	s1, err := r.GetOrCreate(context.Background(), "party1", "v1")
	require.NoError(t, err)

	// a join racing in with a different video id attaches to the existing
	// session; the session's video wins
	s2, err := r.GetOrCreate(context.Background(), "party1", "v2")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, "v1", s2.Video.ID)
}

func TestCloseTearsDownAllSessions(t *testing.T) {
	r := newTestRegistry(Config{})
	_, p1, _ := join(t, r, "party1", "u1")
	_, p2, _ := join(t, r, "party2", "u2")

	r.Close()
	assert.Equal(t, 0, r.Len())

	drain(p1)
	_, ok := <-p1.Recv()
	assert.False(t, ok)
	drain(p2)
	_, ok = <-p2.Recv()
	assert.False(t, ok)
}
