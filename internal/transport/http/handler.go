package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/service"
	httpmw "github.com/cwrk-planet/liar-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *service.GameService
}

func NewHandler(svc *service.GameService) *Handler {
	return &Handler{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status string) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: status})
}

// writeErr переводит ошибку сервиса в HTTP статус.
func writeErr(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Kind: "not_found"})
	case domain.KindPhase:
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Kind: "phase"})
	case domain.KindAuthorization:
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error(), Kind: "forbidden"})
	case domain.KindRule:
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "rule"})
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "room is busy"})
			return
		}
		httpmw.L(ctx).Error("handler."+op+":", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return false
	}
	return true
}

// actor: участник из X-Participant-ID.
func actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := httpmw.ParticipantIDFromCtx(r.Context())
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing " + httpmw.HeaderParticipantID})
		return "", false
	}
	return id, true
}

// POST /api/rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	room, err := h.svc.CreateRoom(r.Context(), service.CreateRoomInput{
		Capacity:   req.Capacity,
		RoundLimit: req.RoundLimit,
		ThemeGroup: req.ThemeGroup,
	})
	if err != nil {
		writeErr(r.Context(), w, "CreateRoom", err)
		return
	}

	writeJSON(w, http.StatusCreated, RoomResponse{
		Code:       room.Code,
		Capacity:   room.Capacity,
		RoundLimit: room.RoundLimit,
		State:      room.State,
		ThemeGroup: room.ThemeGroup,
		CreatedAt:  room.CreatedAt,
	})
}

// POST /api/rooms/{code}/join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req JoinRoomRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.JoinRoom(r.Context(), code, req.Nickname)
	if err != nil {
		writeErr(r.Context(), w, "JoinRoom", err)
		return
	}

	writeJSON(w, http.StatusOK, JoinRoomResponse{
		RoomCode:      code,
		ParticipantID: p.ID,
		Nickname:      p.Nickname,
		IsHost:        p.IsHost,
	})
}

// GET /api/rooms/{code}?viewer=
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	viewer := r.URL.Query().Get("viewer")
	if viewer == "" {
		viewer = httpmw.ParticipantIDFromCtx(r.Context())
	}
	snap, err := h.svc.RoomState(r.Context(), code, viewer)
	if err != nil {
		writeErr(r.Context(), w, "GetRoom", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GET /api/rooms/{code}/reconnect?participant=
func (h *Handler) Reconnect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	pid := r.URL.Query().Get("participant")
	if pid == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing participant"})
		return
	}
	ok, err := h.svc.CanReconnect(r.Context(), code, pid)
	if err != nil {
		writeErr(r.Context(), w, "Reconnect", err)
		return
	}
	writeJSON(w, http.StatusOK, ReconnectResponse{RoomCode: code, ParticipantID: pid, CanReconnect: ok})
}

// hostAction: POST без тела от имени участника.
func (h *Handler) hostAction(op, status string, fn func(ctx context.Context, code, participantID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, ok := actor(w, r)
		if !ok {
			return
		}
		if err := fn(r.Context(), chi.URLParam(r, "code"), pid); err != nil {
			writeErr(r.Context(), w, op, err)
			return
		}
		writeOK(w, status)
	}
}

// POST /api/rooms/{code}/start
func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	h.hostAction("StartGame", "started", h.svc.StartGame)(w, r)
}

// POST /api/rooms/{code}/descriptions/begin
func (h *Handler) BeginDescriptions(w http.ResponseWriter, r *http.Request) {
	h.hostAction("BeginDescriptions", "describing", h.svc.BeginDescriptions)(w, r)
}

// POST /api/rooms/{code}/descriptions/more
func (h *Handler) AllowMoreDescriptions(w http.ResponseWriter, r *http.Request) {
	h.hostAction("AllowMoreDescriptions", "describing", h.svc.AllowMoreDescriptions)(w, r)
}

// POST /api/rooms/{code}/judgment
func (h *Handler) StartJudgment(w http.ResponseWriter, r *http.Request) {
	h.hostAction("StartJudgment", "final_voting", h.svc.StartJudgmentVoting)(w, r)
}

// POST /api/rooms/{code}/advance
func (h *Handler) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	h.hostAction("AdvanceRound", "advanced", h.svc.AdvanceRound)(w, r)
}

// POST /api/rooms/{code}/leave
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	h.hostAction("Leave", "left", h.svc.Leave)(w, r)
}

// POST /api/rooms/{code}/voting
func (h *Handler) RequestVoting(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RequestVotingPhase(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeErr(r.Context(), w, "RequestVoting", err)
		return
	}
	writeOK(w, "voting")
}

// POST /api/rooms/{code}/descriptions
func (h *Handler) SubmitStatement(w http.ResponseWriter, r *http.Request) {
	pid, ok := actor(w, r)
	if !ok {
		return
	}
	var req TextRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SubmitStatement(r.Context(), chi.URLParam(r, "code"), pid, req.Text); err != nil {
		writeErr(r.Context(), w, "SubmitStatement", err)
		return
	}
	writeOK(w, "accepted")
}

// POST /api/rooms/{code}/defense
func (h *Handler) SubmitDefense(w http.ResponseWriter, r *http.Request) {
	pid, ok := actor(w, r)
	if !ok {
		return
	}
	var req TextRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SubmitDefense(r.Context(), chi.URLParam(r, "code"), pid, req.Text); err != nil {
		writeErr(r.Context(), w, "SubmitDefense", err)
		return
	}
	writeOK(w, "accepted")
}

// POST /api/rooms/{code}/ballots
func (h *Handler) CastBallot(w http.ResponseWriter, r *http.Request) {
	pid, ok := actor(w, r)
	if !ok {
		return
	}
	var req BallotRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.CastBallot(r.Context(), chi.URLParam(r, "code"), pid, req.TargetID); err != nil {
		writeErr(r.Context(), w, "CastBallot", err)
		return
	}
	writeOK(w, "accepted")
}

// POST /api/rooms/{code}/judgment/ballots
func (h *Handler) CastJudgmentBallot(w http.ResponseWriter, r *http.Request) {
	pid, ok := actor(w, r)
	if !ok {
		return
	}
	var req JudgmentRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.CastJudgmentBallot(r.Context(), chi.URLParam(r, "code"), pid, req.Decision); err != nil {
		writeErr(r.Context(), w, "CastJudgmentBallot", err)
		return
	}
	writeOK(w, "accepted")
}

// POST /api/rooms/{code}/rematch
func (h *Handler) Rematch(w http.ResponseWriter, r *http.Request) {
	pid, ok := actor(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Rematch(r.Context(), chi.URLParam(r, "code"), pid)
	if err != nil {
		writeErr(r.Context(), w, "Rematch", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
