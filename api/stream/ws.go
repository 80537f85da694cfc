// Package stream pushes station status snapshots to websocket clients.
package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/chargeflex/api/charging"
	"github.com/kilianp07/chargeflex/core/events"
	"github.com/kilianp07/chargeflex/core/logger"
	"github.com/kilianp07/chargeflex/internal/eventbus"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Handler serves GET /api/status/ws. Each client receives the current status
// on connect and again after every plan or grid event.
type Handler struct {
	svc      charging.Service
	bus      *eventbus.TypedBus[events.Event]
	chargers int
	log      logger.Logger
	upgrader websocket.Upgrader
}

// NewHandler returns a websocket status feed.
func NewHandler(svc charging.Service, bus *eventbus.TypedBus[events.Event], chargers int, log logger.Logger) *Handler {
	if chargers <= 0 {
		chargers = charging.DefaultChargerCount
	}
	return &Handler{
		svc:      svc,
		bus:      bus,
		chargers: chargers,
		log:      logger.OrNop(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	if err := h.send(conn); err != nil {
		return
	}
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case _, ok := <-sub:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
				return
			}
			// coalesce bursts into one snapshot
			drain(sub)
			if err := h.send(conn); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(charging.StatusOf(h.svc, h.chargers)); err != nil {
		h.log.Debugf("websocket write: %v", err)
		return err
	}
	return nil
}

// readLoop discards client messages and reports when the peer goes away.
func (h *Handler) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func drain(sub <-chan events.Event) {
	for {
		select {
		case _, ok := <-sub:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
