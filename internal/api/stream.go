package api

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"stockmeta/internal/logging"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
	// statePollPeriod catches workspace changes that do not touch the queue
	// (pause, settings, platform).
	statePollPeriod = time.Second
)

// StreamMessage is one websocket frame sent to clients.
type StreamMessage struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// handleStream upgrades to a websocket and pushes a snapshot on connect and
// after every queue or state change. Client messages are ignored; the stream
// ends when the client disconnects or the request context ends.
func (s *Server) handleStream(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates, unsubscribe := s.ws.Store().Subscribe()
	defer unsubscribe()

	lastVersion := ^uint64(0)
	var lastState WorkspaceState
	send := func() error {
		snap := BuildSnapshot(ctx, s.ws, s.ws.Store().Snapshot())
		if snap.Version == lastVersion && snap.State == lastState {
			return nil
		}
		lastVersion, lastState = snap.Version, snap.State
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(StreamMessage{Type: "snapshot", Snapshot: &snap})
	}
	if err := send(); err != nil {
		return nil
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	poll := time.NewTicker(statePollPeriod)
	defer poll.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteWait))
			return nil
		case _, ok := <-updates:
			if !ok {
				return nil
			}
			err = send()
		case <-poll.C:
			err = send()
		case <-ping.C:
			err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait))
		}
		if err != nil {
			s.logger.Debug("stream closed", logging.Error(err))
			return nil
		}
	}
}
