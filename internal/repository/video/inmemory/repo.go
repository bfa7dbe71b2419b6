package inmemory

import (
	"context"
	"sync"

	"github.com/codecast/watchparty/internal/repository/video"
)

// Repo is a map-backed video getter for tests and standalone runs.
type Repo struct {
	mu     sync.RWMutex
	videos map[string]video.Video
}

func NewRepo(videos ...video.Video) *Repo {
	r := &Repo{videos: make(map[string]video.Video, len(videos))}
	for _, v := range videos {
		r.videos[v.ID] = v
	}
	return r
}

func (r *Repo) Add(v video.Video) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[v.ID] = v
}

func (r *Repo) GetVideo(_ context.Context, videoID string) (video.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.videos[videoID]
	if !ok {
		return video.Video{}, video.ErrNotFound
	}

	return v, nil
}
