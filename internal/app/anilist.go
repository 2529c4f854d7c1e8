package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/dubfeed/internal/buildinfo"
	"github.com/Guilhem-Bonnet/dubfeed/internal/ports"
)

type AniListService struct {
	endpoint string
	client   *http.Client
}

func NewAniListService() *AniListService {
	return &AniListService{
		endpoint: "https://graphql.anilist.co",
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (s *AniListService) WithEndpoint(endpoint string) *AniListService {
	if strings.TrimSpace(endpoint) != "" {
		s.endpoint = strings.TrimSpace(endpoint)
	}
	return s
}

type aniListGraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type aniListGraphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type aniListGraphQLResponse[T any] struct {
	Data   T                     `json:"data"`
	Errors []aniListGraphQLError `json:"errors,omitempty"`
}

type AniListMedia struct {
	ID    int  `json:"id"`
	IDMal *int `json:"idMal"`
	Title struct {
		UserPreferred string `json:"userPreferred"`
		Romaji        string `json:"romaji"`
		English       string `json:"english"`
		Native        string `json:"native"`
	} `json:"title"`
}

type mediaData struct {
	Media *AniListMedia `json:"Media"`
}

// SearchMedia cherche un anime par titre. Renvoie ErrNotFound si AniList ne trouve rien.
func (s *AniListService) SearchMedia(ctx context.Context, title string) (AniListMedia, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return AniListMedia{}, ports.ErrNotFound
	}

	req := aniListGraphQLRequest{
		Query: `query($search:String){
			Media(search:$search, type: ANIME){
				id idMal
				title{ userPreferred romaji english native }
			}
		}`,
		Variables: map[string]any{"search": title},
	}

	var out aniListGraphQLResponse[mediaData]
	if err := s.do(ctx, req, &out); err != nil {
		return AniListMedia{}, err
	}
	if len(out.Errors) > 0 {
		if out.Errors[0].Status == http.StatusNotFound {
			return AniListMedia{}, ports.ErrNotFound
		}
		return AniListMedia{}, errors.New(out.Errors[0].Message)
	}
	if out.Data.Media == nil || out.Data.Media.ID <= 0 {
		return AniListMedia{}, ports.ErrNotFound
	}
	return *out.Data.Media, nil
}

func (s *AniListService) do(ctx context.Context, req aniListGraphQLRequest, out any) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return &CodedError{Code: "network_error", Message: "anilist request", Err: err}
	}
	defer resp.Body.Close()

	// AniList répond 404 (avec un corps JSON) quand la recherche ne donne rien.
	if resp.StatusCode == http.StatusNotFound {
		return ports.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return &CodedError{Code: "http_status", Message: "anilist http error: " + resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &CodedError{Code: "decode_error", Message: "decode anilist response", Err: err}
	}
	return nil
}
