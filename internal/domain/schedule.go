package domain

import "time"

// RawBroadcast est une entrée brute de la timetable "dub" d'AnimeSchedule.
// Les dates restent en texte: elles sont validées par la normalisation.
type RawBroadcast struct {
	Route   string `json:"route"`
	Title   string `json:"title"`
	Romaji  string `json:"romaji,omitempty"`
	English string `json:"english,omitempty"`
	Native  string `json:"native,omitempty"`

	EpisodeNumber           int    `json:"episodeNumber"`
	SubtractedEpisodeNumber int    `json:"subtractedEpisodeNumber,omitempty"`
	EpisodeDate             string `json:"episodeDate"`
	DelayedFrom             string `json:"delayedFrom,omitempty"`
	DelayedUntil            string `json:"delayedUntil,omitempty"`

	AirType   string `json:"airType,omitempty"`
	Status    string `json:"status,omitempty"`
	LengthMin int    `json:"lengthMin,omitempty"`
	Donghua   bool   `json:"donghua,omitempty"`
}

// FallbackTitles renvoie les titres alternatifs à essayer quand la route ne se résout pas.
func (b RawBroadcast) FallbackTitles() []string {
	out := make([]string, 0, 4)
	for _, t := range []string{b.Romaji, b.Native, b.English, b.Title} {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SeriesIdentity est l'identité canonique d'une série (AniList + MAL).
type SeriesIdentity struct {
	SeriesID          int    `json:"id"`
	SeriesSecondaryID *int   `json:"idMal,omitempty"`
	CanonicalTitle    string `json:"title"`
}

// ScheduleEntry est l'état courant d'une série dans la timetable, une par run.
type ScheduleEntry struct {
	SeriesID          int    `json:"id"`
	SeriesSecondaryID *int   `json:"idMal,omitempty"`
	Title             string `json:"title"`
	Route             string `json:"route"`

	LatestEpisodeNumber     int       `json:"episodeNumber"`
	SubtractedEpisodeNumber int       `json:"subtractedEpisodeNumber,omitempty"`
	EpisodeDate             time.Time `json:"episodeDate"`

	// nil = aucun retard annoncé.
	DelayedFrom  *time.Time `json:"delayedFrom,omitempty"`
	DelayedUntil *time.Time `json:"delayedUntil,omitempty"`

	Unaired bool `json:"unaired,omitempty"`

	NextEpisodeNumber int       `json:"nextEpisode"`
	NextAiringAt      time.Time `json:"nextAiringAt"`
}
