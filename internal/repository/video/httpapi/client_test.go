package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecast/watchparty/internal/repository/video"
)

func TestGetVideo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/videos/v1":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"v1","url":"http://cdn.example.com/v1.mp4","title":"intro","duration_seconds":120}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL)

	v, err := c.GetVideo(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", v.ID)
	assert.Equal(t, "http://cdn.example.com/v1.mp4", v.URL)
	assert.Equal(t, "intro", v.Title)
	assert.Equal(t, float64(120), v.DurationSeconds)

	_, err = c.GetVideo(context.Background(), "missing")
	require.ErrorIs(t, err, video.ErrNotFound)
}
