package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 16
)

// Watcher is a read-only live view of a single room. Anything the guest sends
// is discarded; the read pump only exists to handle control frames and detect
// disconnects.
type Watcher struct {
	conn     *websocket.Conn
	hub      *Hub
	log      *log.Logger
	roomId   string
	send     chan *ServerMessage
	stop     chan struct{}
	stopOnce sync.Once
}

func NewWatcher(roomId string, conn *websocket.Conn, hub *Hub, l *log.Logger) *Watcher {
	return &Watcher{
		conn:   conn,
		hub:    hub,
		log:    l,
		roomId: roomId,
		send:   make(chan *ServerMessage, sendBufferSize),
		stop:   make(chan struct{}),
	}
}

func (w *Watcher) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case msg := <-w.send:
			if !w.writeServerMessage(msg) {
				return
			}
		case <-w.stop:
			w.flush()
			w.sendMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			if !w.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (w *Watcher) Read() {
	defer func() {
		w.hub.Unregister(w)
		w.conn.Close()
	}()

	w.conn.SetReadLimit(maxMessageSize)
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error { w.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				w.log.Printf("ws: read: %v", err)
			}
			return
		}
	}
}

func (w *Watcher) queueMessage(msg *ServerMessage) bool {
	select {
	case w.send <- msg:
		return true
	default:
		w.log.Printf("send buffer full for watcher of room %q", w.roomId)
		return false
	}
}

// flush writes whatever is still queued, such as a final room_deleted notice.
func (w *Watcher) flush() {
	for {
		select {
		case msg := <-w.send:
			if !w.writeServerMessage(msg) {
				return
			}
		default:
			return
		}
	}
}

func (w *Watcher) writeServerMessage(msg *ServerMessage) bool {
	b, err := serializeMessage(msg)
	if err != nil {
		w.log.Println("failed to serialize message:", err)
		return true
	}

	return w.sendMessage(websocket.TextMessage, b)
}

func (w *Watcher) sendMessage(msgType int, msg []byte) bool {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := w.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			w.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (w *Watcher) close() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}
