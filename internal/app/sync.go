package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
	"github.com/Guilhem-Bonnet/dubfeed/internal/ports"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

// RunSummary résume un run: compteurs de fetch, de résolution et de réconciliation.
type RunSummary struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Fetched    int `json:"fetched"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`

	FeedSize   int `json:"feedSize"`
	Removed    int `json:"removed"`
	Corrected  int `json:"corrected"`
	Backfilled int `json:"backfilled"`
	Added      int `json:"added"`
	Anomalies  int `json:"anomalies"`
}

// Syncer exécute un run complet: fetch, résolution, normalisation, réconciliation, persistance.
type Syncer struct {
	logger     zerolog.Logger
	provider   ports.ScheduleProvider
	resolver   ports.TitleResolver
	store      ports.FeedStore
	bus        ports.EventBus
	reconciler *Reconciler

	// Now est l'horloge du run; time.Now par défaut.
	Now func() time.Time
}

func NewSyncer(logger zerolog.Logger, provider ports.ScheduleProvider, resolver ports.TitleResolver, store ports.FeedStore, bus ports.EventBus) *Syncer {
	return &Syncer{
		logger:     logger,
		provider:   provider,
		resolver:   resolver,
		store:      store,
		bus:        bus,
		reconciler: NewReconciler(logger.With().Str("component", "reconciler").Logger()),
		Now:        time.Now,
	}
}

func (s *Syncer) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Syncer) Run(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{RunID: xid.New().String(), StartedAt: s.now()}
	logger := s.logger.With().Str("run_id", summary.RunID).Logger()

	summary, err := s.run(ctx, logger, summary)
	summary.FinishedAt = s.now()
	if err != nil {
		logger.Error().Err(err).Str("code", ErrorCode(err)).Msg("run failed")
		s.publish(ports.TopicRunFailed, map[string]any{"runId": summary.RunID, "error": err.Error()})
		return summary, err
	}

	logger.Info().
		Int("fetched", summary.Fetched).
		Int("resolved", summary.Resolved).
		Int("unresolved", summary.Unresolved).
		Int("feed_size", summary.FeedSize).
		Int("added", summary.Added).
		Int("backfilled", summary.Backfilled).
		Int("removed", summary.Removed).
		Int("corrected", summary.Corrected).
		Int("anomalies", summary.Anomalies).
		Msg("run completed")
	s.publish(ports.TopicRunCompleted, summary)
	if summary.Added+summary.Backfilled+summary.Removed+summary.Corrected > 0 {
		s.publish(ports.TopicFeedUpdated, summary)
	}
	return summary, nil
}

func (s *Syncer) run(ctx context.Context, logger zerolog.Logger, summary RunSummary) (RunSummary, error) {
	logger.Info().Msg("fetching dub airing schedule")
	records, err := s.provider.FetchDubTimetable(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch schedule: %w", err)
	}
	summary.Fetched = len(records)
	logger.Info().Int("records", len(records)).Msg("dub airing schedule retrieved")

	// Le feed est lu avant toute écriture: un feed illisible laisse l'état précédent intact.
	existing, err := s.store.LoadFeed(ctx)
	if err != nil {
		return summary, fmt.Errorf("load feed: %w", err)
	}

	if err := s.store.SaveRawSchedule(ctx, records); err != nil {
		return summary, fmt.Errorf("save raw schedule: %w", err)
	}

	now := s.now()
	schedule := make([]domain.ScheduleEntry, 0, len(records))
	for _, rec := range records {
		id, err := s.resolver.Resolve(ctx, rec)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Unresolved++
			ev := logger.Warn().Str("route", rec.Route).Str("title", rec.Title)
			if !errors.Is(err, ports.ErrNotFound) {
				ev = ev.Err(err)
			}
			ev.Msg("failed to resolve route, skipped this run")
			continue
		}
		logger.Debug().Str("route", rec.Route).Int("series_id", id.SeriesID).Str("resolved", id.CanonicalTitle).Msg("resolved route")
		schedule = append(schedule, Normalize(rec, id, now))
	}
	summary.Resolved = len(schedule)

	if len(schedule) == 0 {
		return summary, ErrNoResolvedSeries
	}
	if len(schedule) != len(records) {
		logger.Warn().Int("resolved", len(schedule)).Int("records", len(records)).Msg("resolved series count does not match schedule")
	}

	if err := s.store.SaveSchedule(ctx, schedule); err != nil {
		return summary, fmt.Errorf("save schedule: %w", err)
	}

	feed, report := s.reconciler.Reconcile(now, existing, schedule)
	if err := s.store.SaveFeed(ctx, feed); err != nil {
		return summary, fmt.Errorf("save feed: %w", err)
	}

	summary.FeedSize = len(feed)
	summary.Removed = len(report.Removed)
	summary.Corrected = len(report.Corrected)
	summary.Backfilled = len(report.Backfilled)
	summary.Added = len(report.Added)
	summary.Anomalies = len(report.Anomalies)
	return summary, nil
}

func (s *Syncer) publish(topic string, v any) {
	if s.bus == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("failed to encode event")
		return
	}
	s.bus.Publish(topic, b)
}
