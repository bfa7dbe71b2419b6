package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/codecast/watchparty/internal/controller"
	"github.com/codecast/watchparty/internal/party"
	"github.com/codecast/watchparty/internal/repository/video"
	"github.com/codecast/watchparty/internal/repository/video/httpapi"
	"github.com/codecast/watchparty/internal/repository/video/rediscache"
	"github.com/codecast/watchparty/internal/service/identity"
	"github.com/codecast/watchparty/pkg/ctxlogger"
	"github.com/codecast/watchparty/pkg/redisclient"
)

type videoGetter interface {
	GetVideo(ctx context.Context, videoID string) (video.Video, error)
}

type AppConfig struct {
	Secret          string `json:"-"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	LogLevel        string `json:"log_level"`
	MembersLimit    int    `json:"members_limit"`
	JoinGraceSec    int    `json:"join_grace_sec"`
	SendBuffer      int    `json:"send_buffer"`
	VideoServiceURL string `json:"video_service_url"`
	RedisHost       string `json:"redis_host"`
	RedisPort       int    `json:"redis_port"`
	RedisPassword   string `json:"-"`
	VideoCacheTTL   int    `json:"video_cache_ttl_sec"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.SendBuffer < 1 {
		return fmt.Errorf("send buffer must be greater than 0")
	}
	if cfg.VideoServiceURL == "" {
		return fmt.Errorf("video service url must be set")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	var videos videoGetter = httpapi.NewClient(cfg.VideoServiceURL)
	if cfg.RedisHost != "" {
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		videos = rediscache.NewRepo(rc, videos, time.Duration(cfg.VideoCacheTTL)*time.Second, logger)
	}

	registry := party.NewRegistry(videos, party.Config{
		MembersLimit: cfg.MembersLimit,
		SendBuffer:   cfg.SendBuffer,
	}, logger)
	identityResolver := identity.NewResolver(cfg.Secret)
	controller := controller.NewController(registry, identityResolver, &controller.Config{
		JoinGrace: time.Duration(cfg.JoinGraceSec) * time.Second,
	}, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		registry.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
