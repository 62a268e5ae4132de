package server

import (
	"time"

	"github.com/npezzotti/go-scoreboard/internal/types"
)

type ServerMessage struct {
	Timestamp   time.Time    `json:"timestamp"`
	RoomUpdate  *RoomUpdate  `json:"room_update,omitempty"`
	RoomDeleted *RoomDeleted `json:"room_deleted,omitempty"`
}

// RoomUpdate carries the full scoreboard of a room in join order.
type RoomUpdate struct {
	RoomId       string              `json:"room_id"`
	CreatedAt    time.Time           `json:"created_at"`
	Participants []types.Participant `json:"participants"`
}

type RoomDeleted struct {
	RoomId string `json:"room_id"`
}

func NewRoomUpdate(room types.Room) *ServerMessage {
	participants := room.Participants
	if participants == nil {
		participants = []types.Participant{}
	}

	return &ServerMessage{
		Timestamp: Now(),
		RoomUpdate: &RoomUpdate{
			RoomId:       room.Id,
			CreatedAt:    room.CreatedAt,
			Participants: participants,
		},
	}
}

func NewRoomDeleted(roomId string) *ServerMessage {
	return &ServerMessage{
		Timestamp:   Now(),
		RoomDeleted: &RoomDeleted{RoomId: roomId},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
