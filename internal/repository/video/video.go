package video

import "errors"

var ErrNotFound = errors.New("video not found")

// Video is the catalog metadata attached to a session at creation. The
// engine never interprets or proxies the video bytes; URL is handed to
// clients as-is.
type Video struct {
	ID              string  `json:"id" redis:"id"`
	URL             string  `json:"url" redis:"url"`
	Title           string  `json:"title" redis:"title"`
	DurationSeconds float64 `json:"duration_seconds" redis:"duration_seconds"`
}
