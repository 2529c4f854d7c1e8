package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
	"github.com/Guilhem-Bonnet/dubfeed/internal/ports"
)

// FeedReader est la partie lecture du store utilisée par l'API.
type FeedReader interface {
	LoadFeed(ctx context.Context) ([]domain.FeedEpisode, error)
	LoadSchedule(ctx context.Context) ([]domain.ScheduleEntry, error)
}

type Server struct {
	logger zerolog.Logger
	store  FeedReader
	bus    ports.EventBus
}

func NewServer(logger zerolog.Logger, store FeedReader, bus ports.EventBus) *Server {
	return &Server{logger: logger, store: store, bus: bus}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		// Le flux SSE reste ouvert: pas de timeout de requête.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))
			r.Get("/health", s.handleHealth)
			r.Get("/version", s.handleVersion)
			r.Get("/openapi.json", s.handleOpenAPI)

			if s.store != nil {
				NewFeedHandler(s.store).Routes(r)
			}
		})
	})

	return r
}
