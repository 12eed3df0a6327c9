package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxFrame   = 64 << 10

	// OriginWebsocket marks events published by websocket clients.
	OriginWebsocket = "ws"
)

// Hub bridges websocket clients to a Gateway. A client connected for a user
// receives every crisis-channel event addressed to that user and may publish
// inbound events (counselor_available, message_received, ...) for that user.
type Hub struct {
	gw       Gateway
	perMin   int
	log      zerolog.Logger
	now      func() time.Time
	upgrader websocket.Upgrader
}

// NewHub creates a Hub; messagesPerMinute bounds inbound frames per connection.
func NewHub(gw Gateway, messagesPerMinute int, log zerolog.Logger) *Hub {
	if messagesPerMinute <= 0 {
		messagesPerMinute = 60
	}
	return &Hub{
		gw:     gw,
		perMin: messagesPerMinute,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Serve upgrades the request and pumps events until either side goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}
	// Detached from the request context: hijacked connections outlive it in some servers.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := h.gw.Subscribe(ctx, ChannelCrisis)
	if err != nil {
		h.log.Error().Stack().Err(err).Str("user_id", userID).Msg("realtime subscribe failed")
		_ = conn.Close()
		return
	}

	log := h.log.With().Str("user_id", userID).Str("remote", r.RemoteAddr).Logger()
	log.Info().Msg("websocket client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(ctx, conn, events, userID, log)
	}()

	h.readPump(ctx, conn, userID, log)
	cancel()
	<-done
	_ = conn.Close()
	log.Info().Msg("websocket client disconnected")
}

func (h *Hub) readPump(ctx context.Context, conn *websocket.Conn, userID string, log zerolog.Logger) {
	limiter := rate.NewLimiter(rate.Limit(float64(h.perMin)/60.0), h.perMin)

	conn.SetReadLimit(maxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		if !limiter.Allow() {
			log.Warn().Str("type", string(evt.Type)).Msg("websocket client rate limited; frame dropped")
			continue
		}
		if !evt.Type.Inbound() {
			log.Warn().Str("type", string(evt.Type)).Msg("websocket client sent non-inbound event; ignored")
			continue
		}
		evt.UserID = userID
		evt.Origin = OriginWebsocket
		if evt.At.IsZero() {
			evt.At = h.now()
		}
		if err := h.gw.Send(ctx, ChannelCrisis, evt); err != nil {
			log.Error().Err(err).Str("type", string(evt.Type)).Msg("realtime send failed")
		}
	}
}

func (h *Hub) writePump(ctx context.Context, conn *websocket.Conn, events <-chan Event, userID string, log zerolog.Logger) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if evt.UserID != userID || evt.Origin == OriginWebsocket {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				log.Warn().Err(err).Msg("websocket write failed")
				_ = conn.Close()
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
