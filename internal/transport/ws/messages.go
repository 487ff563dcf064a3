package ws

import "encoding/json"

// Типы входящих сообщений от клиента
const (
	TypeDesc     = "DESC"     // описание слова
	TypeVote     = "VOTE"     // голос обвинения
	TypeJudgment = "JUDGMENT" // финальный голос
	TypeDefense  = "DEFENSE"  // последнее слово
	TypePing     = "PING"
	TypePong     = "PONG"
)

// Inbound: сообщение клиента. Payload разбирается по Type.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type TextPayload struct {
	Text string `json:"text"`
}

type VotePayload struct {
	TargetID string `json:"targetId"`
}

type JudgmentPayload struct {
	Decision string `json:"decision"`
}

// ErrorPayload уходит только отправителю.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Request string `json:"request,omitempty"`
}

const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeRateLimited = "RATE_LIMITED"
	CodeNotFound    = "NOT_FOUND"
	CodePhase       = "PHASE_MISMATCH"
	CodeForbidden   = "FORBIDDEN"
	CodeRule        = "RULE_VIOLATION"
	CodeInternal    = "INTERNAL"
)
