package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	WebsocketPath          = "/api/realtime/ws"
	eventEstablished       = "connection_established"
	defaultHandshakeWindow = 5 * time.Second
)

// WebsocketDialer opens the server's broadcast socket already subscribed to
// Channel. The dial succeeds once the server has announced the socket id.
type WebsocketDialer struct {
	AppKey  string
	Channel string
	Path    string
	Header  http.Header
	Dialer  *websocket.Dialer
}

func NewWebsocketDialer(appKey, channel string) *WebsocketDialer {
	return &WebsocketDialer{AppKey: appKey, Channel: channel, Path: WebsocketPath}
}

// URL is the socket address for c.
func (d *WebsocketDialer) URL(c Candidate) string {
	scheme := "ws"
	if c.TLS {
		scheme = "wss"
	}
	path := d.Path
	if path == "" {
		path = WebsocketPath
	}
	q := url.Values{}
	q.Set("key", d.AppKey)
	if d.Channel != "" {
		q.Set("channel", d.Channel)
	}
	u := url.URL{Scheme: scheme, Host: c.Address(), Path: path, RawQuery: q.Encode()}
	return u.String()
}

func (d *WebsocketDialer) Dial(ctx context.Context, c Candidate) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, resp, err := dialer.DialContext(ctx, d.URL(c), d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c, err)
	}

	// The handshake read does not watch ctx, so closing the socket unblocks it.
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	deadline := time.Now().Add(defaultHandshakeWindow)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = ws.SetReadDeadline(deadline)

	socketID, err := readEstablished(ws)
	if !stop() {
		_ = ws.Close()
		return nil, ctx.Err()
	}
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("handshake %s: %w", c, err)
	}
	_ = ws.SetReadDeadline(time.Time{})
	return &wsConn{ws: ws, socketID: socketID}, nil
}

func readEstablished(ws *websocket.Conn) (string, error) {
	var f Frame
	if err := ws.ReadJSON(&f); err != nil {
		return "", err
	}
	if f.Event != eventEstablished {
		return "", fmt.Errorf("unexpected first event %q", f.Event)
	}
	var data struct {
		SocketID string `json:"socket_id"`
	}
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return "", err
	}
	if data.SocketID == "" {
		return "", errors.New("server did not assign a socket id")
	}
	return data.SocketID, nil
}

type wsConn struct {
	ws       *websocket.Conn
	socketID string
}

func (c *wsConn) SocketID() string { return c.socketID }

func (c *wsConn) Next() (Frame, error) {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return Frame{}, err
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		return f, nil
	}
}

func (c *wsConn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}
