package server

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/npezzotti/go-scoreboard/internal/stats"
	"github.com/npezzotti/go-scoreboard/internal/types"
)

// RoomSource provides the current state of a room.
type RoomSource interface {
	GetRoom(id string) (types.Room, error)
}

type stopReq struct {
	done chan struct{}
}

// Hub fans room snapshots out to the guests watching each room. Watcher
// bookkeeping is owned by the Run goroutine.
type Hub struct {
	log            *log.Logger
	rooms          RoomSource
	stats          stats.StatsProvider
	watchers       map[string]map[*Watcher]struct{}
	registerChan   chan *Watcher
	unregisterChan chan *Watcher
	// pending collects rooms with unpublished changes; wake signals Run.
	pendingLock sync.Mutex
	pending     map[string]struct{}
	wake        chan struct{}
	stop        chan stopReq
	done        chan struct{}
}

func NewHub(logger *log.Logger, rooms RoomSource, su stats.StatsProvider) *Hub {
	su.RegisterMetric(stats.NumWatchers)

	return &Hub{
		log:            logger,
		rooms:          rooms,
		stats:          su,
		watchers:       make(map[string]map[*Watcher]struct{}),
		registerChan:   make(chan *Watcher),
		unregisterChan: make(chan *Watcher),
		pending:        make(map[string]struct{}),
		wake:           make(chan struct{}, 1),
		stop:           make(chan stopReq),
		done:           make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case w := <-h.registerChan:
			h.addWatcher(w)
		case w := <-h.unregisterChan:
			h.removeWatcher(w)
		case <-h.wake:
			for _, id := range h.takePending() {
				h.publish(id)
			}
		case req := <-h.stop:
			h.log.Println("closing watchers")
			for id := range h.watchers {
				for w := range h.watchers[id] {
					h.removeWatcher(w)
				}
			}

			close(h.done)
			close(req.done)
			return
		}
	}
}

// Register adds a watcher and sends it the current state of its room.
func (h *Hub) Register(w *Watcher) {
	select {
	case h.registerChan <- w:
	case <-h.done:
		w.close()
	}
}

func (h *Hub) Unregister(w *Watcher) {
	select {
	case h.unregisterChan <- w:
	case <-h.done:
	}
}

// Notify marks a room as changed. It never blocks; notifications for the same
// room are coalesced and the snapshot is read when it is published, so
// watchers always end up with the latest state.
func (h *Hub) Notify(roomId string) {
	h.pendingLock.Lock()
	h.pending[roomId] = struct{}{}
	h.pendingLock.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Hub) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case h.stop <- req:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) takePending() []string {
	h.pendingLock.Lock()
	defer h.pendingLock.Unlock()

	ids := make([]string, 0, len(h.pending))
	for id := range h.pending {
		ids = append(ids, id)
	}
	clear(h.pending)

	return ids
}

func (h *Hub) addWatcher(w *Watcher) {
	if h.watchers[w.roomId] == nil {
		h.watchers[w.roomId] = make(map[*Watcher]struct{})
	}
	h.watchers[w.roomId][w] = struct{}{}
	h.stats.Incr(stats.NumWatchers)
	h.log.Printf("watcher joined room %q, %d watching", w.roomId, len(h.watchers[w.roomId]))

	room, err := h.rooms.GetRoom(w.roomId)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			h.log.Printf("get room %q: %v", w.roomId, err)
		}
		w.queueMessage(NewRoomDeleted(w.roomId))
		h.removeWatcher(w)
		return
	}

	if !w.queueMessage(NewRoomUpdate(room)) {
		h.removeWatcher(w)
	}
}

func (h *Hub) removeWatcher(w *Watcher) {
	set, ok := h.watchers[w.roomId]
	if !ok {
		return
	}
	if _, ok := set[w]; !ok {
		return
	}

	delete(set, w)
	if len(set) == 0 {
		delete(h.watchers, w.roomId)
	}
	w.close()
	h.stats.Decr(stats.NumWatchers)
}

func (h *Hub) publish(roomId string) {
	set := h.watchers[roomId]
	if len(set) == 0 {
		return
	}

	room, err := h.rooms.GetRoom(roomId)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			h.log.Printf("get room %q: %v", roomId, err)
			return
		}

		h.log.Printf("room %q deleted, closing %d watchers", roomId, len(set))
		msg := NewRoomDeleted(roomId)
		for w := range set {
			w.queueMessage(msg)
			h.removeWatcher(w)
		}
		return
	}

	msg := NewRoomUpdate(room)
	for w := range set {
		if !w.queueMessage(msg) {
			// a watcher that cannot keep up is dropped, it reconnects for a fresh snapshot
			h.removeWatcher(w)
		}
	}
}
