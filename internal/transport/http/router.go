package http

import (
	"context"
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/liar-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/liar-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	CORSOrigins []string
	// Ready проверяет хранилище для /healthz; nil: всегда ok
	Ready func(ctx context.Context) error
}

func NewRouter(h *Handler, wsServer *ws.Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httpmw.RequestID)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", httpmw.HeaderParticipantID},
		ExposedHeaders:   []string{httpmw.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WS endpoint: без access log, ему нужен Hijacker
	if wsServer != nil {
		r.Get("/ws/rooms/{code}", wsServer.HandleWS)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(httpmw.WithRequestLogger)
		api.Use(httpmw.RequestLogger)
		api.Use(httpmw.ParticipantMiddleware)
		api.Use(middlewareChi.Timeout(30 * time.Second))

		api.Route("/rooms", func(rm chi.Router) {
			rm.Post("/", h.CreateRoom)

			rm.Route("/{code}", func(rr chi.Router) {
				rr.Get("/", h.GetRoom)
				rr.Get("/reconnect", h.Reconnect)
				rr.Post("/join", h.JoinRoom)
				rr.Post("/leave", h.Leave)
				rr.Post("/start", h.StartGame)
				rr.Post("/descriptions/begin", h.BeginDescriptions)
				rr.Post("/descriptions", h.SubmitStatement)
				rr.Post("/descriptions/more", h.AllowMoreDescriptions)
				rr.Post("/voting", h.RequestVoting)
				rr.Post("/ballots", h.CastBallot)
				rr.Post("/defense", h.SubmitDefense)
				rr.Post("/judgment", h.StartJudgment)
				rr.Post("/judgment/ballots", h.CastJudgmentBallot)
				rr.Post("/advance", h.AdvanceRound)
				rr.Post("/rematch", h.Rematch)
			})
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
