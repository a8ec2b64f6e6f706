// ABOUTME: Websocket stream of session events; each message carries the event and a fresh session view.
// ABOUTME: A read loop detects client disconnects; the write loop ends when the session closes.
package web

import (
	"log"
	"net/http"
	"time"

	"github.com/2389-research/neurogems/session"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096}

type sessionMessage struct {
	Event session.Event `json:"event"`
	View  session.View  `json:"view"`
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existingSession(r)
	if !ok {
		http.Error(w, "no session", http.StatusNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web ws upgrade id=%s err=%v", sess.ID, err)
		return
	}

	events, cancel := sess.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	writePump(conn, sess, events, done)
	cancel()
	_ = conn.Close()
}

func writePump(conn *websocket.Conn, sess *session.Session, events <-chan session.Event, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	if err := writeSessionMessage(conn, sess, session.Event{Type: session.EventStep, SessionID: sess.ID}); err != nil {
		return
	}
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := writeSessionMessage(conn, sess, ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeSessionMessage(conn *websocket.Conn, sess *session.Session, ev session.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(sessionMessage{Event: ev, View: sess.View()})
}
