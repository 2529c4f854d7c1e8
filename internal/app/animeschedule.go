package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/dubfeed/internal/buildinfo"
	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// AnimeScheduleService lit la timetable hebdomadaire des épisodes doublés
// (https://animeschedule.net/api/v3/timetables/dub).
type AnimeScheduleService struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewAnimeScheduleService(token string) *AnimeScheduleService {
	return &AnimeScheduleService{
		baseURL: "https://animeschedule.net",
		token:   strings.TrimSpace(token),
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

func (s *AnimeScheduleService) WithBaseURL(base string) *AnimeScheduleService {
	if strings.TrimSpace(base) != "" {
		s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
	return s
}

type animeScheduleErrors struct {
	Errors []struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchDubTimetable renvoie les enregistrements triés par titre.
// Toute erreur est fatale pour le run: on ne persiste rien de partiel.
func (s *AnimeScheduleService) FetchDubTimetable(ctx context.Context) ([]domain.RawBroadcast, error) {
	if s.token == "" {
		return nil, ErrScheduleTokenMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v3/timetables/dub", nil)
	if err != nil {
		return nil, &CodedError{Code: "network_error", Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &CodedError{Code: "network_error", Message: "fetch dub timetable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, &CodedError{Code: "network_error", Message: "read dub timetable", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "animeschedule http error: " + resp.Status
		var apiErr animeScheduleErrors
		if json.Unmarshal(body, &apiErr) == nil && len(apiErr.Errors) > 0 && apiErr.Errors[0].Message != "" {
			msg += " (" + apiErr.Errors[0].Message + ")"
		}
		return nil, &CodedError{Code: "http_status", Message: msg}
	}

	var records []domain.RawBroadcast
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &CodedError{Code: "decode_error", Message: "decode dub timetable", Err: err}
	}
	if records == nil {
		return nil, &CodedError{Code: "empty_schedule", Message: "dub timetable is null"}
	}

	SortBroadcasts(records)
	return records, nil
}

// SortBroadcasts trie par titre selon la collation anglaise (insensible à la casse).
func SortBroadcasts(records []domain.RawBroadcast) {
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(records, func(i, j int) bool {
		return c.CompareString(records[i].Title, records[j].Title) < 0
	})
}
