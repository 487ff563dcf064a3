package http

import (
	"time"

	"github.com/cwrk-planet/liar-service/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type CreateRoomRequest struct {
	Capacity   int    `json:"capacity"`
	RoundLimit int    `json:"roundLimit"`
	ThemeGroup string `json:"themeGroup"`
}

type RoomResponse struct {
	Code       string           `json:"code"`
	Capacity   int              `json:"capacity"`
	RoundLimit int              `json:"roundLimit"`
	State      domain.RoomState `json:"state"`
	ThemeGroup string           `json:"themeGroup"`
	CreatedAt  time.Time        `json:"createdAt"`
}

type JoinRoomRequest struct {
	Nickname string `json:"nickname"`
}

type JoinRoomResponse struct {
	RoomCode      string `json:"roomCode"`
	ParticipantID string `json:"participantId"`
	Nickname      string `json:"nickname"`
	IsHost        bool   `json:"isHost"`
}

type TextRequest struct {
	Text string `json:"text"`
}

type BallotRequest struct {
	TargetID string `json:"targetId"`
}

type JudgmentRequest struct {
	Decision string `json:"decision"`
}

type ReconnectResponse struct {
	RoomCode      string `json:"roomCode"`
	ParticipantID string `json:"participantId"`
	CanReconnect  bool   `json:"canReconnect"`
}
