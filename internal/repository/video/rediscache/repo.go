package rediscache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codecast/watchparty/internal/repository/video"
)

type iGetter interface {
	GetVideo(ctx context.Context, videoID string) (video.Video, error)
}

// Repo decorates a video getter with a redis cache. Cache failures are
// logged and fall through to the inner getter; they are never fatal.
type Repo struct {
	rc             *redis.Client
	inner          iGetter
	expireDuration time.Duration
	logger         *slog.Logger
}

func NewRepo(rc *redis.Client, inner iGetter, expireDuration time.Duration, logger *slog.Logger) *Repo {
	return &Repo{
		rc:             rc,
		inner:          inner,
		expireDuration: expireDuration,
		logger:         logger,
	}
}

func (r *Repo) getVideoKey(videoID string) string {
	return "video:" + videoID
}

func (r *Repo) GetVideo(ctx context.Context, videoID string) (video.Video, error) {
	videoKey := r.getVideoKey(videoID)

	var v video.Video
	if err := r.rc.HGetAll(ctx, videoKey).Scan(&v); err != nil {
		r.logger.Warn("failed to read video cache", "video_id", videoID, "error", err)
	} else if v.ID != "" {
		r.rc.Expire(ctx, videoKey, r.expireDuration)
		return v, nil
	}

	v, err := r.inner.GetVideo(ctx, videoID)
	if err != nil {
		return video.Video{}, err
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, videoKey, v)
	pipe.Expire(ctx, videoKey, r.expireDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("failed to write video cache", "video_id", videoID, "error", err)
	}

	return v, nil
}
