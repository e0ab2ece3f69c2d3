package stream

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type RouteOptions struct {
	// Origen permitido para WebSocket; vacío o "*" acepta cualquiera.
	AllowedOrigin string
}

func RegisterRoutes(r chi.Router, n *Notifier, opts RouteOptions) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin(opts.AllowedOrigin),
	}

	r.Get("/api/webhook-stream", sseHandler(n, WebhookStream))
	r.Get("/api/image-stream", sseHandler(n, ImageStream))

	r.Get("/api/ws/webhook-stream", wsHandler(n, WebhookStream, upgrader))
	r.Get("/api/ws/image-stream", wsHandler(n, ImageStream, upgrader))
}

// sseHandler godoc
// @Summary Stream de eventos (SSE)
// @Description Abre un stream Server-Sent Events. El primer frame es `{"status":"connected"}`; luego un frame JSON `{"id","type","data"}` por evento publicado. Sin replay: lo publicado mientras no hay conexión se pierde.
// @Tags streams
// @Produce text/event-stream
// @Success 200 {string} string "stream abierto"
// @Router /api/webhook-stream [get]
// @Router /api/image-stream [get]
func sseHandler(n *Notifier, st Stream) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := newSSESubscriber(w)

		// El server tiene WriteTimeout; un stream no debe cortarse por eso.
		_ = sub.rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if err := n.Serve(r.Context(), st, sub); err != nil {
			n.log.Debug("sse stream ended", map[string]any{"stream": st.Name, "err": err})
		}
	}
}

// wsHandler godoc
// @Summary Stream de eventos (WebSocket)
// @Description Igual que el stream SSE pero cada frame es un mensaje de texto WebSocket.
// @Tags streams
// @Success 101 {string} string "switching protocols"
// @Router /api/ws/webhook-stream [get]
// @Router /api/ws/image-stream [get]
func wsHandler(n *Notifier, st Stream, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade ya respondió con el error HTTP.
			n.log.Warn("websocket upgrade failed", map[string]any{"stream": st.Name, "err": err})
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Con la conexión secuestrada, el cierre del cliente solo se ve leyendo.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := n.Serve(ctx, st, newWSSubscriber(conn)); err != nil {
			n.log.Debug("websocket stream ended", map[string]any{"stream": st.Name, "err": err})
			return
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
	}
}

func checkOrigin(allowed string) func(r *http.Request) bool {
	allowed = strings.TrimRight(strings.TrimSpace(allowed), "/")
	return func(r *http.Request) bool {
		if allowed == "" || allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		// Clientes no-browser no mandan Origin.
		return origin == "" || strings.EqualFold(strings.TrimRight(origin, "/"), allowed)
	}
}
