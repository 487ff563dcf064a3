package domain

import "time"

type EventType string

const (
	EventPlayerJoined         EventType = "PLAYER_JOINED"
	EventPlayerLeft           EventType = "PLAYER_LEFT"
	EventRoomStateUpdate      EventType = "ROOM_STATE_UPDATE"
	EventGameStarted          EventType = "GAME_STARTED"
	EventRoleAssigned         EventType = "ROLE_ASSIGNED"
	EventRoundState           EventType = "ROUND_STATE"
	EventDescUpdate           EventType = "DESC_UPDATE"
	EventVoteUpdate           EventType = "VOTE_UPDATE"
	EventVoteResult           EventType = "VOTE_RESULT"
	EventFinalDefenseComplete EventType = "FINAL_DEFENSE_COMPLETE"
	EventRoundTransition      EventType = "ROUND_TRANSITION"
	EventGameEnd              EventType = "GAME_END"
	EventGameInterrupted      EventType = "GAME_INTERRUPTED"
	EventRoomDeleted          EventType = "ROOM_DELETED"
	EventRoomRecreated        EventType = "ROOM_RECREATED"
	EventError                EventType = "ERROR"
)

// Event: конверт для рассылки подписчикам комнаты.
type Event struct {
	Type      EventType `json:"type"`
	RoomCode  string    `json:"roomCode"`
	ActorID   string    `json:"playerId,omitempty"`
	ActorName string    `json:"playerNickname,omitempty"`
	Payload   any       `json:"data,omitempty"`
	At        time.Time `json:"timestamp"`
}

type AuditEntry struct {
	ID            string    `db:"id" json:"id"`
	RoomCode      string    `db:"room_code" json:"roomCode"`
	ParticipantID string    `db:"participant_id" json:"participantId,omitempty"`
	Action        string    `db:"action" json:"action"`
	Payload       string    `db:"payload" json:"payload,omitempty"`
	At            time.Time `db:"created_at" json:"at"`
}
