package realtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
)

// Channel is a message-oriented duplex connection to the peer.
type Channel interface {
	WriteJSON(v any) error
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens a Channel to the peer service.
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// WSDialer connects over WebSocket with bearer authentication.
type WSDialer struct {
	URL    string
	APIKey string
}

// Dial opens the WebSocket connection. The caller bounds the attempt
// via ctx; a default dial timeout applies on top.
func (d *WSDialer) Dial(ctx context.Context) (Channel, error) {
	ctx, cancel := context.WithTimeout(ctx, types.DialTimeout)
	defer cancel()

	header := http.Header{}
	if d.APIKey != "" {
		header.Set("Authorization", "Bearer "+d.APIKey)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, d.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial peer (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial peer: %w", err)
	}
	return &wsChannel{conn: conn}, nil
}

// wsChannel adapts a gorilla websocket connection to Channel. Writes
// are serialized by the session controller's single writer goroutine.
type wsChannel struct {
	conn *websocket.Conn
}

func (c *wsChannel) WriteJSON(v any) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(types.WriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *wsChannel) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsChannel) Close() error {
	deadline := time.Now().Add(time.Second)
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}
