package domain

import "errors"

// Kind: категория ошибки для маппинга в транспорт.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPhase
	KindAuthorization
	KindRule
)

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func newErr(k Kind, msg string) error {
	return &kindError{kind: k, msg: msg}
}

var (
	ErrRoomNotFound        = newErr(KindNotFound, "room not found")
	ErrParticipantNotFound = newErr(KindNotFound, "participant not found")
	ErrRoundNotFound       = newErr(KindNotFound, "round not found")
	ErrThemeNotFound       = newErr(KindNotFound, "no theme available")

	ErrPhaseMismatch     = newErr(KindPhase, "action not allowed in current phase")
	ErrRoomNotInLobby    = newErr(KindPhase, "room is not accepting players")
	ErrGameNotInProgress = newErr(KindPhase, "game is not in progress")
	ErrGameNotEnded      = newErr(KindPhase, "game has not ended")

	ErrNotHost    = newErr(KindAuthorization, "only the host can do this")
	ErrNotAccused = newErr(KindAuthorization, "only the accused participant can defend")

	ErrDeadParticipant   = newErr(KindRule, "eliminated participants cannot act")
	ErrSelfVote          = newErr(KindRule, "cannot vote for yourself")
	ErrAlreadyVoted      = newErr(KindRule, "already voted this round")
	ErrAlreadySubmitted  = newErr(KindRule, "statement already submitted")
	ErrRoomFull          = newErr(KindRule, "room is full")
	ErrNicknameTaken     = newErr(KindRule, "nickname already taken")
	ErrNotEnoughPlayers  = newErr(KindRule, "not enough players")
	ErrInvalidTarget     = newErr(KindRule, "invalid vote target")
	ErrAccusedCannotVote = newErr(KindRule, "the accused cannot vote in judgment")
	ErrEmptyText         = newErr(KindRule, "text is empty")
	ErrTextTooLong       = newErr(KindRule, "text too long")
	ErrInvalidDecision   = newErr(KindRule, "decision must be SURVIVE or ELIMINATE")
	ErrInvalidNickname   = newErr(KindRule, "invalid nickname")
)

func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsPhase(err error) bool         { return KindOf(err) == KindPhase }
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }
func IsRule(err error) bool          { return KindOf(err) == KindRule }
