package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codecast/watchparty/internal/party"
	"github.com/codecast/watchparty/internal/repository/video"
	"github.com/codecast/watchparty/pkg/ctxlogger"
)

const maxMessageSize = 4096

// serveWS upgrades the connection and runs the message protocol. The first
// effective message must be a join; everything before it is rejected
// without touching any session state.
func (c *Controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)

	ctx, sess, p, err := c.awaitJoin(r.Context(), conn)
	if err != nil {
		c.logger.DebugContext(r.Context(), "connection closed before join", "error", err)
		return
	}

	// releasing closes the participant's queue; the pump must finish
	// flushing it before the deferred close tears the socket down
	done := make(chan struct{})
	defer func() { <-done }()
	defer c.registry.Release(sess, p)

	go func() {
		defer close(done)
		c.writePump(ctx, conn, p)
	}()

	c.serveMessages(ctx, conn, sess, p)
}

// awaitJoin reads messages until a valid join arrives or the grace period
// expires. Protocol errors are answered on the connection directly; no
// writer goroutine exists yet, so the read loop is the only writer.
func (c *Controller) awaitJoin(ctx context.Context, conn *websocket.Conn) (context.Context, *party.Session, *party.Participant, error) {
	if err := conn.SetReadDeadline(time.Now().Add(c.joinGrace)); err != nil {
		return ctx, nil, nil, err
	}

	for {
		var input Input
		if err := conn.ReadJSON(&input); err != nil {
			return ctx, nil, nil, err
		}

		if input.Type != kindJoin {
			c.writeDirect(conn, wsError{Code: codeProtocolError, Message: "expected join"})
			continue
		}

		var join JoinInput
		if err := json.Unmarshal(input.Payload, &join); err != nil {
			c.writeDirect(conn, wsError{Code: codeProtocolError, Message: "malformed join payload"})
			continue
		}
		if validationErrors, ok := c.validate.Validate(join); !ok {
			c.writeDirect(conn, wsError{Code: codeProtocolError, Message: validationErrors[0].Message})
			continue
		}

		userID := join.UserID
		if join.AuthToken != "" || userID == "" {
			resolved, err := c.identity.Resolve(join.AuthToken)
			if err != nil {
				c.writeDirect(conn, wsError{Code: codeAuthError, Message: "invalid auth token"})
				continue
			}
			userID = resolved
		}

		sess, err := c.registry.GetOrCreate(ctx, join.PartyID, join.VideoID)
		if err != nil {
			if errors.Is(err, video.ErrNotFound) {
				c.writeDirect(conn, wsError{Code: codeNotFound, Message: "video not found"})
			} else {
				c.logger.WarnContext(ctx, "failed to resolve session", "party_id", join.PartyID, "error", err)
				c.writeDirect(conn, wsError{Code: codeNotFound, Message: "party unavailable"})
			}
			continue
		}

		p := c.registry.NewParticipant(userID)
		if _, err := sess.Join(p); err != nil {
			c.registry.Release(sess, p)
			switch {
			case errors.Is(err, party.ErrPartyFull):
				c.writeDirect(conn, wsError{Code: codePartyFull, Message: "party is full"})
			default:
				c.writeDirect(conn, wsError{Code: codeNotFound, Message: "party not found"})
			}
			continue
		}

		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			c.registry.Release(sess, p)
			return ctx, nil, nil, err
		}

		ctx = ctxlogger.AppendCtx(ctx, slog.String("party_id", sess.PartyID))
		ctx = ctxlogger.AppendCtx(ctx, slog.String("user_id", userID))
		c.logger.InfoContext(ctx, "participant joined")

		return ctx, sess, p, nil
	}
}

// serveMessages is the post-join read loop. Inbound kinds are a closed set;
// errors are answered to this connection only and never reach session
// state. A read error of any sort is treated as an implicit leave; the
// deferred Release in serveWS serializes the cleanup through the session.
func (c *Controller) serveMessages(ctx context.Context, conn *websocket.Conn, sess *party.Session, p *party.Participant) {
	for {
		var input Input
		if err := conn.ReadJSON(&input); err != nil {
			c.logger.DebugContext(ctx, "connection closed", "error", err)
			return
		}

		switch input.Type {
		case kindJoin:
			sess.Send(p, wsError{Code: codeProtocolError, Message: "already joined"})
		case kindChat:
			c.handleChat(ctx, input.Payload, sess, p)
		case kindSync:
			c.handleSync(ctx, input.Payload, sess, p)
		case kindLeave:
			c.logger.InfoContext(ctx, "participant left")
			return
		default:
			sess.Send(p, wsError{Code: codeProtocolError, Message: "unknown message type"})
		}
	}
}

func (c *Controller) handleChat(ctx context.Context, payload json.RawMessage, sess *party.Session, p *party.Participant) {
	var input ChatInput
	if err := json.Unmarshal(payload, &input); err != nil {
		sess.Send(p, wsError{Code: codeProtocolError, Message: "malformed chat payload"})
		return
	}
	if validationErrors, ok := c.validate.Validate(input); !ok {
		sess.Send(p, wsError{Code: codeProtocolError, Message: validationErrors[0].Message})
		return
	}

	if err := sess.Chat(p.ID, input.Text); err != nil {
		c.logger.DebugContext(ctx, "failed to relay chat", "error", err)
		sess.Send(p, wsError{Code: codeNotFound, Message: "party not found"})
	}
}

func (c *Controller) handleSync(ctx context.Context, payload json.RawMessage, sess *party.Session, p *party.Participant) {
	var input SyncInput
	if err := json.Unmarshal(payload, &input); err != nil {
		sess.Send(p, wsError{Code: codeProtocolError, Message: "malformed sync payload"})
		return
	}
	if validationErrors, ok := c.validate.Validate(input); !ok {
		sess.Send(p, wsError{Code: codeProtocolError, Message: validationErrors[0].Message})
		return
	}

	action := party.Action{Kind: party.ActionKind(input.Action)}
	if action.Kind == party.ActionSeek {
		if input.Value == nil {
			sess.Send(p, wsError{Code: codeProtocolError, Message: "seek requires a value"})
			return
		}
		action.Value = *input.Value
	}

	if err := sess.ApplyAction(p.ID, action); err != nil {
		c.logger.DebugContext(ctx, "failed to apply action", "error", err)
		switch {
		case errors.Is(err, party.ErrUnknownAction):
			sess.Send(p, wsError{Code: codeProtocolError, Message: "unknown action"})
		default:
			sess.Send(p, wsError{Code: codeNotFound, Message: "party not found"})
		}
	}
}
