package httpmw

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const (
	HeaderParticipantID = "X-Participant-ID"

	ctxKeyParticipantID ctxKey = "participant_id"
)

// ParticipantMiddleware кладёт X-Participant-ID в контекст. Проверка членства
// в комнате делается сервисом; здесь только транспорт.
func ParticipantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderParticipantID))
		if id != "" {
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyParticipantID, id))
		}
		next.ServeHTTP(w, r)
	})
}

func ParticipantIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyParticipantID).(string); ok {
		return v
	}
	return ""
}
