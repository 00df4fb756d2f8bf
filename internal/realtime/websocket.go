package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = (wsPongTimeout * 9) / 10
	wsMaxFrameSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Broadcast channels are public; any page origin may subscribe.
	CheckOrigin: func(*http.Request) bool { return true },
}

// clientFrame is what subscribers may send over the socket.
type clientFrame struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
}

// ServeWS upgrades the request and pumps the client's messages over the
// socket. The first frame carries the socket id. Subscribers may send
// subscribe/unsubscribe frames; allow decides which channels are reachable.
func (hub *SSEHub) ServeWS(w http.ResponseWriter, r *http.Request, client *SSEClient, allow func(channel string) bool) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	defer client.attach(TransportWebsocket)()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	control := make(chan Frame, 4)
	conn.SetReadLimit(wsMaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	go hub.readPump(ctx, cancel, conn, client, allow, control)

	if err := writeFrame(conn, Frame{
		Event: SSEEventConnectionEstablished,
		Data:  map[string]any{"socket_id": client.SocketID(), "activity_timeout": int(wsPingInterval / time.Second)},
	}); err != nil {
		return
	}
	for _, ch := range hub.channelsOf(client) {
		if err := writeFrame(conn, Frame{Channel: ch, Event: SSEEventSubscribed}); err != nil {
			return
		}
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case <-client.done:
			return
		case f := <-control:
			if err := writeFrame(conn, f); err != nil {
				return
			}
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			if err := writeFrame(conn, msg.Frame()); err != nil {
				hub.logger.Debug("Websocket write failed", "clientID", client.ID, "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (hub *SSEHub) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, client *SSEClient, allow func(string) bool, control chan<- Frame) {
	defer cancel()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				hub.logger.Debug("Websocket read failed", "clientID", client.ID, "error", err)
			}
			return
		}
		var in clientFrame
		if err := json.Unmarshal(raw, &in); err != nil {
			hub.reply(ctx, control, Frame{Event: SSEEventError, Data: map[string]any{"message": "invalid frame"}})
			continue
		}
		switch in.Event {
		case "subscribe":
			if allow != nil && !allow(in.Channel) {
				hub.reply(ctx, control, Frame{Channel: in.Channel, Event: SSEEventError, Data: map[string]any{"message": "channel not allowed"}})
				continue
			}
			hub.AddChannel(client, in.Channel)
			hub.reply(ctx, control, Frame{Channel: in.Channel, Event: SSEEventSubscribed})
		case "unsubscribe":
			hub.RemoveChannel(client, in.Channel)
		case "ping":
			hub.reply(ctx, control, Frame{Event: "pong"})
		}
	}
}

func (hub *SSEHub) reply(ctx context.Context, control chan<- Frame, f Frame) {
	select {
	case control <- f:
	case <-ctx.Done():
	}
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, raw)
}
