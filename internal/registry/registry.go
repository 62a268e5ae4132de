package registry

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/npezzotti/go-scoreboard/internal/types"
)

const maxIdAttempts = 5

var roomIdPattern = regexp.MustCompile(`^[0-9]+$`)

// slot is the stable arena key of a participant record. Slots are never
// reused.
type slot uint64

type room struct {
	id        string
	createdAt time.Time
	members   []slot
	nicknames map[string]slot
}

// Registry owns every room and participant. Rooms reference participants by
// slot and the participant index maps participant ids to the same slots, so
// both views always resolve to a single record in the arena.
type Registry struct {
	mu    sync.RWMutex
	ids   IDGenerator
	now   func() time.Time
	rooms map[string]*room
	arena map[slot]*types.Participant
	index map[string]slot
	next  slot
}

func NewRegistry(ids IDGenerator) *Registry {
	return &Registry{
		ids:   ids,
		now:   Now,
		rooms: make(map[string]*room),
		arena: make(map[slot]*types.Participant),
		index: make(map[string]slot),
	}
}

func ValidRoomId(id string) bool {
	return roomIdPattern.MatchString(id)
}

func (reg *Registry) CreateRoom(id string) (types.Room, error) {
	if !ValidRoomId(id) {
		return types.Room{}, fmt.Errorf("room id %q must be numeric: %w", id, types.ErrInvalidInput)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.rooms[id]; ok {
		return types.Room{}, fmt.Errorf("room %q already exists: %w", id, types.ErrConflict)
	}

	r := &room{
		id:        id,
		createdAt: reg.now(),
		nicknames: make(map[string]slot),
	}
	reg.rooms[id] = r

	return reg.roomLocked(r), nil
}

// DeleteRoom removes the room and cascades the removal to every participant
// that joined it. It returns the number of participants removed.
func (reg *Registry) DeleteRoom(id string) (int, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[id]
	if !ok {
		return 0, fmt.Errorf("room %q: %w", id, types.ErrNotFound)
	}

	for _, s := range r.members {
		if p, ok := reg.arena[s]; ok {
			delete(reg.index, p.Id)
		}
		delete(reg.arena, s)
	}
	delete(reg.rooms, id)

	return len(r.members), nil
}

func (reg *Registry) ListRoomsPublic() []types.RoomSummary {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rooms := reg.sortedRoomsLocked()
	summaries := make([]types.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, summaryOf(r))
	}

	return summaries
}

func (reg *Registry) GetRoomPublic(id string) (types.RoomSummary, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	r, ok := reg.rooms[id]
	if !ok {
		return types.RoomSummary{}, fmt.Errorf("room %q: %w", id, types.ErrNotFound)
	}

	return summaryOf(r), nil
}

// GetRoom returns the full room including its participants.
func (reg *Registry) GetRoom(id string) (types.Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	r, ok := reg.rooms[id]
	if !ok {
		return types.Room{}, fmt.Errorf("room %q: %w", id, types.ErrNotFound)
	}

	return reg.roomLocked(r), nil
}

func (reg *Registry) ListRoomsAdmin() []types.Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rooms := reg.sortedRoomsLocked()
	full := make([]types.Room, 0, len(rooms))
	for _, r := range rooms {
		full = append(full, reg.roomLocked(r))
	}

	return full
}

func (reg *Registry) Join(roomId, nickname string) (types.Participant, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[roomId]
	if !ok {
		return types.Participant{}, fmt.Errorf("room %q: %w", roomId, types.ErrNotFound)
	}

	if nickname == "" {
		return types.Participant{}, fmt.Errorf("nickname cannot be empty: %w", types.ErrInvalidInput)
	}

	if _, taken := r.nicknames[nickname]; taken {
		return types.Participant{}, fmt.Errorf("nickname %q in room %q: %w", nickname, roomId, types.ErrConflict)
	}

	id, err := reg.newParticipantIdLocked()
	if err != nil {
		return types.Participant{}, err
	}

	p := &types.Participant{
		Id:       id,
		RoomId:   roomId,
		Nickname: nickname,
		JoinedAt: reg.now(),
	}

	s := reg.next
	reg.next++
	reg.arena[s] = p
	reg.index[id] = s
	r.members = append(r.members, s)
	r.nicknames[nickname] = s

	return *p, nil
}

func (reg *Registry) ListParticipants(roomId string) ([]types.Participant, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	r, ok := reg.rooms[roomId]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", roomId, types.ErrNotFound)
	}

	return reg.participantsLocked(r), nil
}

func (reg *Registry) LookupParticipant(id string) (types.Participant, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	p, ok := reg.participantLocked(id)
	if !ok {
		return types.Participant{}, fmt.Errorf("participant %q: %w", id, types.ErrNotFound)
	}

	return *p, nil
}

// RemoveParticipant drops a single participant from its room and the index.
// The nickname becomes available again in that room.
func (reg *Registry) RemoveParticipant(id string) (types.Participant, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	s, ok := reg.index[id]
	if !ok {
		return types.Participant{}, fmt.Errorf("participant %q: %w", id, types.ErrNotFound)
	}

	p := reg.arena[s]
	if r, ok := reg.rooms[p.RoomId]; ok {
		r.members = slices.DeleteFunc(r.members, func(m slot) bool { return m == s })
		delete(r.nicknames, p.Nickname)
	}
	delete(reg.index, id)
	delete(reg.arena, s)

	return *p, nil
}

func (reg *Registry) UpdateScore(id string, action ScoreAction) (types.Participant, error) {
	if !action.valid() {
		return types.Participant{}, fmt.Errorf("score action %s: %w", action, types.ErrInvalidInput)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	p, ok := reg.participantLocked(id)
	if !ok {
		return types.Participant{}, fmt.Errorf("participant %q: %w", id, types.ErrNotFound)
	}

	p.Score = action.apply(p.Score)

	return *p, nil
}

func (reg *Registry) participantLocked(id string) (*types.Participant, bool) {
	s, ok := reg.index[id]
	if !ok {
		return nil, false
	}

	p, ok := reg.arena[s]
	return p, ok
}

func (reg *Registry) newParticipantIdLocked() (string, error) {
	for range maxIdAttempts {
		id, err := reg.ids.Generate()
		if err != nil {
			return "", fmt.Errorf("generate participant id: %w", err)
		}

		if _, exists := reg.index[id]; !exists && id != "" {
			return id, nil
		}
	}

	return "", fmt.Errorf("generate participant id: no unique id after %d attempts", maxIdAttempts)
}

func (reg *Registry) participantsLocked(r *room) []types.Participant {
	participants := make([]types.Participant, 0, len(r.members))
	for _, s := range r.members {
		if p, ok := reg.arena[s]; ok {
			participants = append(participants, *p)
		}
	}

	return participants
}

func (reg *Registry) roomLocked(r *room) types.Room {
	return types.Room{
		Id:           r.id,
		CreatedAt:    r.createdAt,
		Participants: reg.participantsLocked(r),
	}
}

func (reg *Registry) sortedRoomsLocked() []*room {
	rooms := make([]*room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}

	slices.SortFunc(rooms, func(a, b *room) int {
		return CompareRoomIds(a.id, b.id)
	})

	return rooms
}

func summaryOf(r *room) types.RoomSummary {
	return types.RoomSummary{
		Id:               r.id,
		CreatedAt:        r.createdAt,
		ParticipantCount: len(r.members),
	}
}

// CompareRoomIds orders numeric room ids by value, falling back to the raw
// string so that "7" and "007" still have a definite order.
func CompareRoomIds(a, b string) int {
	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(ta), len(tb)); c != 0 {
		return c
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}

	return strings.Compare(a, b)
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
