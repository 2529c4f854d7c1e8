package app

import (
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
)

// Normalize construit la ScheduleEntry d'un enregistrement brut résolu.
// Ne renvoie jamais d'erreur: une date illisible est simplement absente.
func Normalize(raw domain.RawBroadcast, id domain.SeriesIdentity, now time.Time) domain.ScheduleEntry {
	entry := domain.ScheduleEntry{
		SeriesID:                id.SeriesID,
		SeriesSecondaryID:       id.SeriesSecondaryID,
		Title:                   id.CanonicalTitle,
		Route:                   raw.Route,
		LatestEpisodeNumber:     raw.EpisodeNumber,
		SubtractedEpisodeNumber: raw.SubtractedEpisodeNumber,
	}
	if entry.Title == "" {
		entry.Title = raw.Title
	}

	if t, ok := parseBroadcastTime(raw.EpisodeDate); ok {
		entry.EpisodeDate = t
	}
	if t, ok := parseBroadcastTime(raw.DelayedFrom); ok {
		entry.DelayedFrom = &t
	}
	if t, ok := parseBroadcastTime(raw.DelayedUntil); ok {
		entry.DelayedUntil = &t
	}

	entry.Unaired = isUnaired(entry, now)
	if !entry.EpisodeDate.IsZero() {
		entry.NextEpisodeNumber = entry.LatestEpisodeNumber
		if entry.EpisodeDate.Before(now) {
			entry.NextEpisodeNumber++
		}
		entry.NextAiringAt = domain.RollForward(entry.EpisodeDate, 1, false, now)
	}
	return entry
}

// Un début de série dont la date est encore future n'est pas diffusé.
// subtractedEpisodeNumber n'est pris en compte que s'il est fourni.
func isUnaired(e domain.ScheduleEntry, now time.Time) bool {
	early := e.LatestEpisodeNumber <= 1 || (e.SubtractedEpisodeNumber > 0 && e.SubtractedEpisodeNumber <= 1)
	return early && e.EpisodeDate.After(now)
}

// AnimeSchedule renvoie "0001-01-01T00:00:00Z" pour les dates non renseignées.
// Les dates sont tronquées à la milliseconde, la précision du feed persisté.
func parseBroadcastTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t.UTC().Truncate(time.Millisecond), true
}
