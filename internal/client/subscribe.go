package client

import (
	"context"
	"strings"

	"github.com/chepyr/taskboard/internal/realtime"
	"github.com/gorilla/websocket"
)

func (c *Client) socketURL() string {
	switch {
	case strings.HasPrefix(c.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.baseURL, "https://") + "/socket"
	case strings.HasPrefix(c.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.baseURL, "http://") + "/socket"
	default:
		return c.baseURL + "/socket"
	}
}

// Subscribe listens for task-updated signals and calls onChange for each.
// A non-empty userID is sent as a join-room request first. It returns when
// ctx ends or the connection drops.
func (c *Client) Subscribe(ctx context.Context, userID string, onChange func()) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.socketURL(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if userID != "" {
		if err := conn.WriteJSON(realtime.Message{Event: realtime.EventJoinRoom, Data: userID}); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var msg realtime.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if msg.Event == realtime.EventTaskUpdated {
			onChange()
		}
	}
}
