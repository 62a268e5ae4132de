package types

import (
	"time"
)

type Participant struct {
	Id       string    `json:"id"`
	RoomId   string    `json:"room_id"`
	Nickname string    `json:"nickname"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

type Room struct {
	Id           string        `json:"id"`
	CreatedAt    time.Time     `json:"created_at"`
	Participants []Participant `json:"participants"`
}

// RoomSummary is the public projection of a room. It never carries
// nicknames or scores.
type RoomSummary struct {
	Id               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	ParticipantCount int       `json:"participant_count"`
}

func (r Room) Summary() RoomSummary {
	return RoomSummary{
		Id:               r.Id,
		CreatedAt:        r.CreatedAt,
		ParticipantCount: len(r.Participants),
	}
}
