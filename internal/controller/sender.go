package controller

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codecast/watchparty/internal/party"
)

const writeWait = 5 * time.Second

// writePump drains the participant's outbound queue onto the websocket.
// It is the only writer after the join handshake, so session fan-out and
// error responses share one ordered path per connection. A write failure
// closes the connection; the read loop then unwinds and releases the
// participant, so the failure never reaches anyone else in the session.
func (c *Controller) writePump(ctx context.Context, conn *websocket.Conn, p *party.Participant) {
	defer conn.Close()

	for ev := range p.Recv() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(&Output{Type: ev.EventType(), Payload: ev}); err != nil {
			c.logger.DebugContext(ctx, "failed to write to connection", "error", err)
			return
		}
	}

	// queue closed: the session replaced or removed this connection
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// writeDirect answers on the connection before the writer goroutine exists
// (pre-join phase only).
func (c *Controller) writeDirect(conn *websocket.Conn, e wsError) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(&Output{Type: e.EventType(), Payload: e}); err != nil {
		c.logger.Debug("failed to write error", "error", err)
	}
}
