package rediscache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecast/watchparty/internal/repository/video"
	"github.com/codecast/watchparty/internal/repository/video/inmemory"
)

type countingGetter struct {
	inner *inmemory.Repo
	calls int
}

func (g *countingGetter) GetVideo(ctx context.Context, videoID string) (video.Video, error) {
	g.calls++
	return g.inner.GetVideo(ctx, videoID)
}

func newTestRepo(t *testing.T) (*Repo, *countingGetter, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	inner := &countingGetter{inner: inmemory.NewRepo(video.Video{
		ID:    "v1",
		URL:   "http://example.com/v1.mp4",
		Title: "test video",
	})}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRepo(rc, inner, time.Hour, logger), inner, s
}

func TestGetVideoCachesLookups(t *testing.T) {
	repo, inner, _ := newTestRepo(t)
	ctx := context.Background()

	v, err := repo.GetVideo(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", v.ID)
	assert.Equal(t, 1, inner.calls)

	cached, err := repo.GetVideo(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, v, cached)
	assert.Equal(t, 1, inner.calls, "cache hit must not call the inner getter")
}

func TestGetVideoNotFoundIsNotCached(t *testing.T) {
	repo, inner, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetVideo(ctx, "missing")
	require.ErrorIs(t, err, video.ErrNotFound)

	_, err = repo.GetVideo(ctx, "missing")
	require.ErrorIs(t, err, video.ErrNotFound)
	assert.Equal(t, 2, inner.calls)
}

func TestGetVideoExpiry(t *testing.T) {
	repo, inner, s := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetVideo(ctx, "v1")
	require.NoError(t, err)

	s.FastForward(2 * time.Hour)

	_, err = repo.GetVideo(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "expired entry falls through to the inner getter")
}
