// Package server manages individual WebSocket connections: the read loop
// feeding client frames into the registry, the write loop draining the
// session's outbound queue, and lifecycle teardown.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/CyberAshu/Chatwave-backend/internal/registry"
)

// Connection parameters.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var (
	errSessionClosed  = errors.New("session closed")
	errSendBufferFull = errors.New("send buffer full")

	pongFrame = []byte(`{"type":"pong"}`)
)

// client owns one WebSocket connection. It implements registry.Channel: Send
// enqueues a serialized event for the write pump and never blocks on the
// network, so the dispatcher can fan out to many sessions without one slow
// peer stalling the rest.
type client struct {
	id     string
	userID int64
	// groupID is set only for connections made through the group-scoped
	// endpoint; those manage room membership implicitly and accept a reduced
	// frame set.
	groupID int64

	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	closing sync.Once

	h       *Handler
	limiter *tokenBucket
	log     *slog.Logger
}

func newClient(h *Handler, conn *websocket.Conn, userID, groupID int64) *client {
	c := &client{
		id:      uuid.NewString(),
		userID:  userID,
		groupID: groupID,
		conn:    conn,
		send:    make(chan []byte, h.cfg.SendBufferSize),
		done:    make(chan struct{}),
		h:       h,
		limiter: newTokenBucket(h.cfg.RateLimit.Burst, h.cfg.RateLimit.RefillInterval),
	}
	c.log = h.log.With("conn_id", c.id, "user_id", userID)

	conn.SetReadLimit(h.cfg.MaxMessageSize)
	return c
}

// Send implements registry.Channel. A full queue counts as a failed delivery;
// the event is dropped and the write pump keeps draining.
func (c *client) Send(payload []byte) error {
	select {
	case <-c.done:
		return errSessionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return errSendBufferFull
	}
}

// Close implements registry.Channel. It is safe to call from any goroutine
// and any number of times; the first call stops the write pump and closes the
// underlying connection, which in turn ends the read loop.
func (c *client) Close() error {
	c.closing.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
	return nil
}

// run drives the connection to completion: the write pump in its own
// goroutine, the read loop in the caller's. It returns once the connection is
// finished and closed, before registry teardown.
func (c *client) run(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
	_ = c.Close()
}

func (c *client) readPump(ctx context.Context) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadEnd(err)
			return
		}

		if !c.limiter.allow() {
			c.log.Warn("rate limit exceeded, discarding frame")
			continue
		}

		frame := registry.DecodeFrame(raw)
		if c.groupID > 0 {
			c.dispatchGroupScoped(ctx, frame)
		} else {
			c.dispatch(ctx, frame)
		}
	}
}

// dispatch handles one frame from the primary per-user endpoint. Frames
// targeting a group need persisted-membership authorization, which happens
// here so the registry itself never reads relationship state.
func (c *client) dispatch(ctx context.Context, frame registry.Frame) {
	switch frame.Kind {
	case registry.FrameJoinGroup, registry.FrameGroupMessage, registry.FrameGroupTyping:
		member, err := c.h.store.IsGroupMember(ctx, frame.GroupID, c.userID)
		if err != nil {
			c.log.Error("checking group membership", "group_id", frame.GroupID, "error", err)
			return
		}
		if !member {
			c.log.Warn("group frame refused for non-member", "group_id", frame.GroupID)
			return
		}
	}

	c.h.reg.Dispatch(ctx, c.userID, frame)
}

// dispatchGroupScoped handles frames from the group-scoped endpoint. Room
// membership is bound to the connection itself, so only in-room commands are
// accepted and the frame's group id is pinned to the connection's.
func (c *client) dispatchGroupScoped(ctx context.Context, frame registry.Frame) {
	switch frame.Kind {
	case registry.FrameGroupMessage:
		if frame.Content == "" {
			return
		}
		if err := c.h.reg.GroupMessage(ctx, c.userID, c.groupID, frame.Content); err != nil {
			c.log.Error("persisting group message", "group_id", c.groupID, "error", err)
		}

	case registry.FrameGroupTyping:
		c.h.reg.GroupTyping(c.userID, c.groupID, frame.IsTyping)

	case registry.FramePing:
		if err := c.Send(pongFrame); err != nil {
			c.log.Debug("dropping pong", "error", err)
		}

	default:
		// Everything else is out of scope for a group-bound connection.
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return

		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Debug("write failed", "error", err)
				}
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) logReadEnd(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("frame exceeded maximum size", "limit", c.h.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("client disconnected")
	case isExpectedCloseError(err):
		c.log.Debug("connection closed", "error", err)
	default:
		c.log.Warn("websocket read error", "error", err)
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
