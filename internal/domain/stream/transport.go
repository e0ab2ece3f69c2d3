package stream

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

// sseSubscriber escribe frames "data: <json>\n\n" sobre un ResponseWriter.
type sseSubscriber struct {
	id string
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSESubscriber(w http.ResponseWriter) *sseSubscriber {
	return &sseSubscriber{
		id: uuid.NewString(),
		w:  w,
		rc: http.NewResponseController(w),
	}
}

func (s *sseSubscriber) ID() string        { return s.id }
func (s *sseSubscriber) Transport() string { return "sse" }

func (s *sseSubscriber) Send(frame []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", frame); err != nil {
		return err
	}
	return s.rc.Flush()
}

// wsSubscriber manda un mensaje de texto por frame.
// Solo la goroutine de Serve escribe; la lectura va en otra goroutine.
type wsSubscriber struct {
	id   string
	conn *websocket.Conn
}

func newWSSubscriber(conn *websocket.Conn) *wsSubscriber {
	return &wsSubscriber{id: uuid.NewString(), conn: conn}
}

func (s *wsSubscriber) ID() string        { return s.id }
func (s *wsSubscriber) Transport() string { return "websocket" }

func (s *wsSubscriber) Send(frame []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}
