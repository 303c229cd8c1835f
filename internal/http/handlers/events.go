package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = eventsPongWait * 9 / 10
	eventsBuffer     = 16
)

// upgrader accepts same-host origins plus the configured CORS origins.
func (a *App) upgrader() *websocket.Upgrader {
	u := &websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096}
	if a.Config == nil || len(a.Config.CORSAllowedOrigins) == 0 {
		return u
	}
	allowed := make(map[string]struct{}, len(a.Config.CORSAllowedOrigins))
	for _, origin := range a.Config.CORSAllowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}
	u.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed["*"]; ok {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		parsed, err := url.Parse(origin)
		return err == nil && strings.EqualFold(parsed.Host, r.Host)
	}
	return u
}

// Events streams a snapshot after every session transition over a
// websocket. The current snapshot is sent first.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	conn, err := a.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return
	}
	logger := zerolog.Ctx(r.Context()).With().Str("session_id", ctrl.ID()).Logger()
	events, cancel := ctrl.Subscribe(eventsBuffer)
	defer cancel()
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventsPingPeriod)
	defer ping.Stop()

	_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
	if err := conn.WriteJSON(ctrl.Snapshot()); err != nil {
		return
	}
	logger.Debug().Msg("events stream opened")
	for {
		select {
		case <-closed:
			logger.Debug().Msg("events stream closed by client")
			return
		case snap, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				logger.Debug().Err(err).Msg("events write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteWait)); err != nil {
				return
			}
		}
	}
}
