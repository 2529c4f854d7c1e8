package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
	"github.com/Guilhem-Bonnet/dubfeed/internal/httpjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

type FeedHandler struct {
	store FeedReader
}

func NewFeedHandler(store FeedReader) *FeedHandler {
	return &FeedHandler{store: store}
}

func (h *FeedHandler) Routes(r chi.Router) {
	r.Get("/feed", h.feed)
	r.Get("/schedule", h.schedule)
}

// feed renvoie le feed persisté, dans son ordre de stockage.
// ?series=<id> filtre sur une série, ?limit=<n> tronque (0 = tout).
func (h *FeedHandler) feed(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil || limit < 0 {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	series, err := queryInt(r, "series")
	if err != nil || series < 0 {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid series")
		return
	}

	feed, err := h.store.LoadFeed(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load feed failed")
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]domain.FeedEpisode, 0, len(feed))
	for _, ep := range feed {
		if series > 0 && ep.SeriesID != series {
			continue
		}
		out = append(out, ep)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *FeedHandler) schedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.store.LoadSchedule(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load schedule failed")
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if schedule == nil {
		schedule = []domain.ScheduleEntry{}
	}
	httpjson.Write(w, http.StatusOK, schedule)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
