package domain

import (
	"encoding/json"
	"math"
	"time"
)

// FeedEpisode est un épisode doublé considéré comme diffusé.
// (SeriesID, EpisodeNumber) est unique dans un feed.
type FeedEpisode struct {
	SeriesID          int
	SeriesSecondaryID *int
	EpisodeNumber     int
	AiredAt           time.Time
}

type FeedKey struct {
	SeriesID      int
	EpisodeNumber int
}

func (e FeedEpisode) Key() FeedKey {
	return FeedKey{SeriesID: e.SeriesID, EpisodeNumber: e.EpisodeNumber}
}

// Format JSON historique du feed, lu tel quel par les clients existants.
type feedEpisodeJSON struct {
	ID      int  `json:"id"`
	IDMal   *int `json:"idMal"`
	Episode struct {
		Aired    int     `json:"aired"`
		AiredAt  float64 `json:"airedAt"`
		AiredUTC string  `json:"airedUTC,omitempty"`
	} `json:"episode"`
}

func (e FeedEpisode) MarshalJSON() ([]byte, error) {
	var out feedEpisodeJSON
	out.ID = e.SeriesID
	out.IDMal = e.SeriesSecondaryID
	out.Episode.Aired = e.EpisodeNumber
	// Précision à la milliseconde, comme les fichiers existants.
	aired := e.AiredAt.UTC().Truncate(time.Millisecond)
	out.Episode.AiredAt = float64(aired.UnixMilli()) / 1000
	out.Episode.AiredUTC = aired.Format(time.RFC3339Nano)
	return json.Marshal(out)
}

func (e *FeedEpisode) UnmarshalJSON(b []byte) error {
	var in feedEpisodeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	e.SeriesID = in.ID
	e.SeriesSecondaryID = in.IDMal
	e.EpisodeNumber = in.Episode.Aired
	switch {
	case in.Episode.AiredAt != 0:
		// Les anciens fichiers contiennent des secondes fractionnaires (ms / 1000).
		e.AiredAt = time.UnixMilli(int64(math.Round(in.Episode.AiredAt * 1000))).UTC()
	case in.Episode.AiredUTC != "":
		t, err := time.Parse(time.RFC3339Nano, in.Episode.AiredUTC)
		if err != nil {
			return err
		}
		e.AiredAt = t.UTC()
	default:
		e.AiredAt = time.Time{}
	}
	return nil
}
