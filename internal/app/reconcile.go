package app

import (
	"sort"
	"time"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
	"github.com/rs/zerolog"
)

// Anomaly décrit une entrée ignorée pendant la réconciliation.
type Anomaly struct {
	SeriesID      int    `json:"seriesId,omitempty"`
	Route         string `json:"route,omitempty"`
	EpisodeNumber int    `json:"episodeNumber,omitempty"`
	Reason        string `json:"reason"`
}

type ReconcileReport struct {
	Removed    []domain.FeedEpisode `json:"removed"`
	Corrected  []domain.FeedEpisode `json:"corrected"`
	Backfilled []domain.FeedEpisode `json:"backfilled"`
	Added      []domain.FeedEpisode `json:"added"`
	Anomalies  []Anomaly            `json:"anomalies"`
}

// Reconciler fusionne un snapshot de timetable dans le feed persisté.
//
// Les passes s'exécutent dans cet ordre, chacune sur le résultat de la précédente:
// retard, obsolescence, recalage des dates, rattrapage des trous, ajout du dernier
// épisode. Chaque passe renvoie une nouvelle slice sans modifier son entrée.
type Reconciler struct {
	logger zerolog.Logger
}

func NewReconciler(logger zerolog.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

func (r *Reconciler) Reconcile(now time.Time, feed []domain.FeedEpisode, schedule []domain.ScheduleEntry) ([]domain.FeedEpisode, ReconcileReport) {
	report := ReconcileReport{}

	entries, anomalies := indexSchedule(schedule)
	current, feedAnomalies := dedupeFeed(feed)
	report.Anomalies = append(anomalies, feedAnomalies...)
	for _, a := range report.Anomalies {
		r.logger.Warn().
			Int("series_id", a.SeriesID).
			Str("route", a.Route).
			Int("episode", a.EpisodeNumber).
			Str("reason", a.Reason).
			Msg("reconciliation anomaly")
	}

	current, removed := evictDelayed(current, entries, now)
	report.Removed = append(report.Removed, removed...)

	current, removed = evictStale(current, entries, now)
	report.Removed = append(report.Removed, removed...)

	current, report.Corrected = rebaseDates(current, entries, now)

	last := lastEpisodes(current)
	produced := backfillEpisodes(entries, last, now)
	appended := latestEpisodes(entries, last, now)

	current, report.Backfilled = mergeNew(current, produced)
	current, report.Added = mergeNew(current, appended)

	sortFeed(current)

	r.logger.Debug().
		Int("removed", len(report.Removed)).
		Int("corrected", len(report.Corrected)).
		Int("backfilled", len(report.Backfilled)).
		Int("added", len(report.Added)).
		Int("feed_size", len(current)).
		Msg("reconciled")
	return current, report
}

type scheduleIndex struct {
	ordered  []domain.ScheduleEntry
	bySeries map[int]domain.ScheduleEntry
}

func (ix scheduleIndex) lookup(seriesID int) (domain.ScheduleEntry, bool) {
	e, ok := ix.bySeries[seriesID]
	return e, ok
}

// indexSchedule écarte les entrées inutilisables et garde la première entrée par série.
func indexSchedule(schedule []domain.ScheduleEntry) (scheduleIndex, []Anomaly) {
	ix := scheduleIndex{bySeries: make(map[int]domain.ScheduleEntry, len(schedule))}
	var anomalies []Anomaly
	for _, e := range schedule {
		reason := ""
		switch {
		case e.SeriesID <= 0:
			reason = "missing series id"
		case e.LatestEpisodeNumber < 1:
			reason = "invalid episode number"
		case e.EpisodeDate.IsZero():
			reason = "missing episode date"
		}
		if reason == "" {
			if _, dup := ix.bySeries[e.SeriesID]; dup {
				reason = "duplicate series in schedule"
			}
		}
		if reason != "" {
			anomalies = append(anomalies, Anomaly{SeriesID: e.SeriesID, Route: e.Route, EpisodeNumber: e.LatestEpisodeNumber, Reason: reason})
			continue
		}
		ix.bySeries[e.SeriesID] = e
		ix.ordered = append(ix.ordered, e)
	}
	sort.SliceStable(ix.ordered, func(i, j int) bool { return ix.ordered[i].SeriesID < ix.ordered[j].SeriesID })
	return ix, anomalies
}

// dedupeFeed copie le feed en gardant la première occurrence de chaque épisode.
func dedupeFeed(feed []domain.FeedEpisode) ([]domain.FeedEpisode, []Anomaly) {
	out := make([]domain.FeedEpisode, 0, len(feed))
	seen := make(map[domain.FeedKey]struct{}, len(feed))
	var anomalies []Anomaly
	for _, ep := range feed {
		if _, ok := seen[ep.Key()]; ok {
			anomalies = append(anomalies, Anomaly{SeriesID: ep.SeriesID, EpisodeNumber: ep.EpisodeNumber, Reason: "duplicate feed episode"})
			continue
		}
		seen[ep.Key()] = struct{}{}
		out = append(out, ep)
	}
	return out, anomalies
}

func partition(feed []domain.FeedEpisode, drop func(domain.FeedEpisode) bool) (kept, dropped []domain.FeedEpisode) {
	kept = make([]domain.FeedEpisode, 0, len(feed))
	for _, ep := range feed {
		if drop(ep) {
			dropped = append(dropped, ep)
			continue
		}
		kept = append(kept, ep)
	}
	return kept, dropped
}

// Passe 1: un épisode annoncé puis retardé sort du feed jusqu'à la fin du retard.
func evictDelayed(feed []domain.FeedEpisode, ix scheduleIndex, now time.Time) ([]domain.FeedEpisode, []domain.FeedEpisode) {
	return partition(feed, func(ep domain.FeedEpisode) bool {
		e, ok := ix.lookup(ep.SeriesID)
		return ok && ep.EpisodeNumber == e.LatestEpisodeNumber && domain.IsCurrentlyDelayed(e, now)
	})
}

// Passe 2: la date de diffusion du dernier épisode a été repoussée, ou n'est
// pas encore atteinte.
func evictStale(feed []domain.FeedEpisode, ix scheduleIndex, now time.Time) ([]domain.FeedEpisode, []domain.FeedEpisode) {
	return partition(feed, func(ep domain.FeedEpisode) bool {
		e, ok := ix.lookup(ep.SeriesID)
		if !ok || ep.EpisodeNumber != e.LatestEpisodeNumber {
			return false
		}
		return ep.AiredAt.Before(e.EpisodeDate) || e.EpisodeDate.After(now)
	})
}

// Passe 3: recale toutes les dates d'une série quand l'épisode de référence
// n'est plus aligné sur la timetable. Les écarts exacts entre épisodes sont conservés.
//
// La référence est l'épisode de plus haut numéro <= latest. Les épisodes au-delà
// de latest ne sont pas touchés.
func rebaseDates(feed []domain.FeedEpisode, ix scheduleIndex, now time.Time) ([]domain.FeedEpisode, []domain.FeedEpisode) {
	out := append([]domain.FeedEpisode(nil), feed...)
	var corrected []domain.FeedEpisode

	for _, e := range ix.ordered {
		ref := -1
		var members []int
		for i, ep := range feed {
			if ep.SeriesID != e.SeriesID || ep.EpisodeNumber > e.LatestEpisodeNumber {
				continue
			}
			members = append(members, i)
			if ref < 0 || ep.EpisodeNumber > feed[ref].EpisodeNumber {
				ref = i
			}
		}
		if ref < 0 || alignedWithSchedule(feed[ref], e) {
			continue
		}

		anchor := rebaseAnchor(e, feed[ref].EpisodeNumber, now)
		for _, i := range members {
			shifted := anchor.Add(-feed[ref].AiredAt.Sub(feed[i].AiredAt))
			if shifted.After(anchor) {
				shifted = anchor
			}
			if shifted.Equal(feed[i].AiredAt) {
				continue
			}
			out[i].AiredAt = shifted
			corrected = append(corrected, out[i])
		}
	}
	return out, corrected
}

func alignedWithSchedule(ref domain.FeedEpisode, e domain.ScheduleEntry) bool {
	if ref.EpisodeNumber == e.LatestEpisodeNumber {
		return ref.AiredAt.Equal(e.EpisodeDate)
	}
	return domain.OnWeeklyPhase(ref.AiredAt, e.EpisodeDate)
}

func rebaseAnchor(e domain.ScheduleEntry, refEpisode int, now time.Time) time.Time {
	weeks := e.LatestEpisodeNumber - refEpisode
	if weeks < 0 {
		weeks = 0
	}
	anchor := domain.RollForward(e.EpisodeDate, -weeks, true, now)
	for anchor.After(now) {
		anchor = domain.RollForward(anchor, -1, true, now)
	}
	return anchor
}

func lastEpisodes(feed []domain.FeedEpisode) map[int]int {
	last := map[int]int{}
	for _, ep := range feed {
		if ep.EpisodeNumber > last[ep.SeriesID] {
			last[ep.SeriesID] = ep.EpisodeNumber
		}
	}
	return last
}

// Passe 4: un saut de plusieurs épisodes (double header) laisse des trous entre
// le dernier épisode connu et latest. Chaque trou reçoit une date une semaine
// avant l'épisode suivant, reculée jusqu'à être passée.
func backfillEpisodes(ix scheduleIndex, last map[int]int, now time.Time) []domain.FeedEpisode {
	var out []domain.FeedEpisode
	for _, e := range ix.ordered {
		if e.Unaired {
			continue
		}
		from := last[e.SeriesID]
		cursor := e.EpisodeDate
		for n := e.LatestEpisodeNumber - 1; n > from; n-- {
			cursor = domain.RollForward(cursor, -1, true, now)
			for !cursor.Before(now) {
				cursor = domain.RollForward(cursor, -1, true, now)
			}
			out = append(out, domain.FeedEpisode{
				SeriesID:          e.SeriesID,
				SeriesSecondaryID: e.SeriesSecondaryID,
				EpisodeNumber:     n,
				AiredAt:           cursor,
			})
		}
	}
	return out
}

// Passe 5: le dernier épisode entre dans le feed une fois diffusé et hors retard.
func latestEpisodes(ix scheduleIndex, last map[int]int, now time.Time) []domain.FeedEpisode {
	var out []domain.FeedEpisode
	for _, e := range ix.ordered {
		if e.LatestEpisodeNumber == last[e.SeriesID] {
			continue
		}
		if e.EpisodeDate.After(now) || domain.IsCurrentlyDelayed(e, now) {
			continue
		}
		out = append(out, domain.FeedEpisode{
			SeriesID:          e.SeriesID,
			SeriesSecondaryID: e.SeriesSecondaryID,
			EpisodeNumber:     e.LatestEpisodeNumber,
			AiredAt:           e.EpisodeDate,
		})
	}
	return out
}

// mergeNew ajoute les épisodes absents du feed et renvoie ceux réellement ajoutés.
func mergeNew(feed, produced []domain.FeedEpisode) ([]domain.FeedEpisode, []domain.FeedEpisode) {
	seen := make(map[domain.FeedKey]struct{}, len(feed)+len(produced))
	for _, ep := range feed {
		seen[ep.Key()] = struct{}{}
	}
	out := append(make([]domain.FeedEpisode, 0, len(feed)+len(produced)), feed...)
	var added []domain.FeedEpisode
	for _, ep := range produced {
		if _, ok := seen[ep.Key()]; ok {
			continue
		}
		seen[ep.Key()] = struct{}{}
		out = append(out, ep)
		added = append(added, ep)
	}
	return out, added
}

// sortFeed: airedAt décroissant, puis série croissante, puis épisode décroissant.
func sortFeed(feed []domain.FeedEpisode) {
	sort.SliceStable(feed, func(i, j int) bool {
		a, b := feed[i], feed[j]
		if !a.AiredAt.Equal(b.AiredAt) {
			return a.AiredAt.After(b.AiredAt)
		}
		if a.SeriesID != b.SeriesID {
			return a.SeriesID < b.SeriesID
		}
		return a.EpisodeNumber > b.EpisodeNumber
	})
}
