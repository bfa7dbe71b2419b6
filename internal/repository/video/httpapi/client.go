package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/codecast/watchparty/internal/repository/video"
)

// Client resolves video metadata from the catalog service's REST API
// (GET {baseURL}/api/videos/{id}).
type Client struct {
	baseURL string
	hc      *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) GetVideo(ctx context.Context, videoID string) (video.Video, error) {
	url := fmt.Sprintf("%s/api/videos/%s", c.baseURL, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return video.Video{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return video.Video{}, fmt.Errorf("failed to get video: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return video.Video{}, video.ErrNotFound
	default:
		return video.Video{}, fmt.Errorf("video service returned status %d", resp.StatusCode)
	}

	var v video.Video
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return video.Video{}, fmt.Errorf("failed to decode video: %w", err)
	}
	if v.ID == "" {
		v.ID = videoID
	}

	return v, nil
}
