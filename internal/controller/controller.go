package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codecast/watchparty/internal/party"
	"github.com/codecast/watchparty/pkg/validator"
)

type iRegistry interface {
	GetOrCreate(ctx context.Context, partyID, videoID string) (*party.Session, error)
	Release(s *party.Session, p *party.Participant)
	NewParticipant(userID string) *party.Participant
}

type iIdentity interface {
	Resolve(token string) (string, error)
}

type Config struct {
	// JoinGrace bounds how long a fresh connection may go without a valid
	// join before it is closed without side effects.
	JoinGrace time.Duration
}

type Controller struct {
	registry  iRegistry
	identity  iIdentity
	upgrader  websocket.Upgrader
	validate  *validator.Validator
	logger    *slog.Logger
	joinGrace time.Duration
}

func NewController(registry iRegistry, identity iIdentity, cfg *Config, logger *slog.Logger) *Controller {
	joinGrace := cfg.JoinGrace
	if joinGrace <= 0 {
		joinGrace = 30 * time.Second
	}

	return &Controller{
		registry: registry,
		identity: identity,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate:  validator.NewValidator(),
		logger:    logger,
		joinGrace: joinGrace,
	}
}
