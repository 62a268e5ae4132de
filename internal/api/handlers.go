package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-scoreboard/internal/registry"
	"github.com/npezzotti/go-scoreboard/internal/server"
	"github.com/npezzotti/go-scoreboard/internal/stats"
	"github.com/npezzotti/go-scoreboard/internal/types"
)

const (
	maxBodyBytes = 1 << 16
	// keep in sync with the validate tag on JoinRoomRequest
	maxNicknameLength = 20
)

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

type CreateRoomRequest struct {
	RoomId string `json:"room_id"`
}

type JoinRoomRequest struct {
	Nickname string `json:"nickname" validate:"max=20"`
}

type UpdateScoreRequest struct {
	Action string `json:"action"`
	Value  *int   `json:"value,omitempty"`
}

type DeleteParticipantRequest struct {
	AdminPassword string `json:"admin_password" validate:"required"`
}

var (
	joinRoomMessages = fieldMessages{
		"Nickname": {"max": "nickname is too long"},
	}
	deleteParticipantMessages = fieldMessages{
		"AdminPassword": {"required": "admin password is required"},
	}
)

func (s *ScoreboardApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ScoreboardApp) writeError(w http.ResponseWriter, err error) {
	errResp := apiErrorFrom(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Println("internal error:", err)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *ScoreboardApp) decodeJson(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		errResp := NewBadRequestError()
		errResp.Detail = "invalid request body"
		s.writeJson(w, errResp.StatusCode, errResp)
		return false
	}

	return true
}

func (s *ScoreboardApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		s.log.Println("health check:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ScoreboardApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if !s.decodeJson(w, r, &lr) {
		return
	}

	token, err := s.sessions.Login(lr.Password)
	if err != nil {
		if errors.Is(err, types.ErrUnauthorized) {
			s.stats.Incr(stats.FailedLogins)
			s.log.Printf("failed admin login from %s", r.RemoteAddr)
		}
		s.writeError(w, err)
		return
	}

	s.log.Printf("admin logged in from %s, previous token revoked", r.RemoteAddr)
	w.Header().Set("Cache-Control", "no-store")
	s.writeJson(w, http.StatusOK, LoginResponse{Token: token})
}

func (s *ScoreboardApp) changePassword(w http.ResponseWriter, r *http.Request) {
	token, ok := AdminToken(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req ChangePasswordRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	if err := s.sessions.ChangePassword(token, req.NewPassword); err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Println("admin password changed")
	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ScoreboardApp) createRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	room, err := s.registry.CreateRoom(req.RoomId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.stats.Incr(stats.NumRooms)
	s.log.Printf("created room %q", room.Id)
	s.writeJson(w, http.StatusCreated, room)
}

func (s *ScoreboardApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("roomId")

	removed, err := s.registry.DeleteRoom(roomId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.stats.Decr(stats.NumRooms)
	s.stats.Add(stats.NumParticipants, -removed)
	s.hub.Notify(roomId)
	s.log.Printf("deleted room %q with %d participants", roomId, removed)
	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ScoreboardApp) listRoomsAdmin(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, s.registry.ListRoomsAdmin())
}

func (s *ScoreboardApp) listRooms(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, s.registry.ListRoomsPublic())
}

func (s *ScoreboardApp) getRoom(w http.ResponseWriter, r *http.Request) {
	summary, err := s.registry.GetRoomPublic(r.PathValue("roomId"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, summary)
}

func (s *ScoreboardApp) listParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := s.registry.ListParticipants(r.PathValue("roomId"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, participants)
}

func (s *ScoreboardApp) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("roomId")

	var req JoinRoomRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	req.Nickname = strings.TrimSpace(req.Nickname)
	if !s.validateRequest(w, &req, joinRoomMessages) {
		return
	}

	p, err := s.registry.Join(roomId, req.Nickname)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.stats.Incr(stats.NumParticipants)
	s.hub.Notify(roomId)
	s.log.Printf("%q joined room %q", p.Nickname, roomId)
	s.writeJson(w, http.StatusCreated, p)
}

func (s *ScoreboardApp) updateScore(w http.ResponseWriter, r *http.Request) {
	var req UpdateScoreRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	action, err := registry.ParseScoreAction(req.Action, req.Value)
	if err != nil {
		s.writeError(w, err)
		return
	}

	p, err := s.registry.UpdateScore(r.PathValue("participantId"), action)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.stats.Incr(stats.ScoreUpdates)
	s.hub.Notify(p.RoomId)
	s.writeJson(w, http.StatusOK, p)
}

func (s *ScoreboardApp) deleteParticipant(w http.ResponseWriter, r *http.Request) {
	token, ok := AdminToken(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req DeleteParticipantRequest
	if !s.decodeJson(w, r, &req) || !s.validateRequest(w, &req, deleteParticipantMessages) {
		return
	}

	if err := s.sessions.ConfirmPassword(token, req.AdminPassword); err != nil {
		s.writeError(w, err)
		return
	}

	p, err := s.registry.RemoveParticipant(r.PathValue("participantId"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.stats.Decr(stats.NumParticipants)
	s.hub.Notify(p.RoomId)
	s.log.Printf("removed %q from room %q", p.Nickname, p.RoomId)
	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ScoreboardApp) serveWs(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("roomId")
	if _, err := s.registry.GetRoomPublic(roomId); err != nil {
		s.writeError(w, err)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" || len(s.allowedOrigins) == 0 {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin) || slices.Contains(s.allowedOrigins, "*")
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	watcher := server.NewWatcher(roomId, conn, s.hub, s.log)
	s.hub.Register(watcher)
	go watcher.Write()
	go watcher.Read()
}
