package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/dubfeed/internal/adapters/jsonfile"
	"github.com/Guilhem-Bonnet/dubfeed/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
	"github.com/Guilhem-Bonnet/dubfeed/internal/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

type fakeProvider struct {
	records []domain.RawBroadcast
	err     error
}

func (f *fakeProvider) FetchDubTimetable(ctx context.Context) ([]domain.RawBroadcast, error) {
	return f.records, f.err
}

type fakeResolver struct {
	byRoute map[string]domain.SeriesIdentity
}

func (f *fakeResolver) Resolve(ctx context.Context, rec domain.RawBroadcast) (domain.SeriesIdentity, error) {
	id, ok := f.byRoute[rec.Route]
	if !ok {
		return domain.SeriesIdentity{}, ports.ErrNotFound
	}
	return id, nil
}

type memStore struct {
	feed     []domain.FeedEpisode
	schedule []domain.ScheduleEntry
	raw      []domain.RawBroadcast
	loadErr  error

	feedSaves     int
	scheduleSaves int
	rawSaves      int
}

func (m *memStore) LoadFeed(ctx context.Context) ([]domain.FeedEpisode, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]domain.FeedEpisode(nil), m.feed...), nil
}

func (m *memStore) SaveFeed(ctx context.Context, feed []domain.FeedEpisode) error {
	m.feedSaves++
	m.feed = feed
	return nil
}

func (m *memStore) LoadSchedule(ctx context.Context) ([]domain.ScheduleEntry, error) {
	return m.schedule, nil
}

func (m *memStore) SaveSchedule(ctx context.Context, schedule []domain.ScheduleEntry) error {
	m.scheduleSaves++
	m.schedule = schedule
	return nil
}

func (m *memStore) SaveRawSchedule(ctx context.Context, records []domain.RawBroadcast) error {
	m.rawSaves++
	m.raw = records
	return nil
}

func newTestSyncer(provider ports.ScheduleProvider, resolver ports.TitleResolver, store ports.FeedStore, bus ports.EventBus) *Syncer {
	s := NewSyncer(zerolog.Nop(), provider, resolver, store, bus)
	s.Now = func() time.Time { return testNow }
	return s
}

func TestSyncer_RunPersistsFeed(t *testing.T) {
	provider := &fakeProvider{records: []domain.RawBroadcast{
		{Route: "sousou-no-frieren", Title: "Frieren", EpisodeNumber: 3, EpisodeDate: testNow.Add(-day).Format(time.RFC3339)},
		{Route: "unknown-show", Title: "Unknown", EpisodeNumber: 1, EpisodeDate: testNow.Add(-day).Format(time.RFC3339)},
	}}
	resolver := &fakeResolver{byRoute: map[string]domain.SeriesIdentity{
		"sousou-no-frieren": {SeriesID: 154587, CanonicalTitle: "Sousou no Frieren"},
	}}
	store := &memStore{}
	bus := memorybus.New()
	defer bus.Close()
	events, cancel := bus.Subscribe()
	defer cancel()

	summary, err := newTestSyncer(provider, resolver, store, bus).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatalf("expected a run id")
	}
	if summary.Fetched != 2 || summary.Resolved != 1 || summary.Unresolved != 1 {
		t.Fatalf("unexpected counters %+v", summary)
	}
	if summary.Added != 1 || summary.Backfilled != 2 || summary.FeedSize != 3 {
		t.Fatalf("unexpected reconciliation counters %+v", summary)
	}
	if store.rawSaves != 1 || len(store.raw) != 2 {
		t.Fatalf("raw schedule should keep every fetched record, got %+v", store.raw)
	}
	if len(store.schedule) != 1 || store.schedule[0].SeriesID != 154587 {
		t.Fatalf("unexpected schedule snapshot %+v", store.schedule)
	}
	if len(store.feed) != 3 || store.feed[0].EpisodeNumber != 3 {
		t.Fatalf("unexpected feed %+v", store.feed)
	}

	var topics []string
	for len(topics) < 2 {
		select {
		case evt := <-events:
			topics = append(topics, evt.Topic)
		case <-time.After(time.Second):
			t.Fatalf("expected run events, got %v", topics)
		}
	}
	if topics[0] != ports.TopicRunCompleted || topics[1] != ports.TopicFeedUpdated {
		t.Fatalf("unexpected events %v", topics)
	}
}

func TestSyncer_FetchErrorWritesNothing(t *testing.T) {
	fetchErr := &CodedError{Code: "http_status", Message: "animeschedule http error: 503"}
	store := &memStore{feed: []domain.FeedEpisode{ep(1, 1, testX)}}
	bus := memorybus.New()
	defer bus.Close()
	events, cancel := bus.Subscribe(ports.TopicRunFailed)
	defer cancel()

	_, err := newTestSyncer(&fakeProvider{err: fetchErr}, &fakeResolver{}, store, bus).Run(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if ErrorCode(err) != "http_status" {
		t.Fatalf("expected coded error to survive wrapping, got %q", ErrorCode(err))
	}
	if store.rawSaves+store.scheduleSaves+store.feedSaves != 0 {
		t.Fatalf("nothing should be written on fetch failure: %+v", store)
	}
	if len(store.feed) != 1 {
		t.Fatalf("previous feed must be preserved")
	}
	select {
	case evt := <-events:
		if evt.Topic != ports.TopicRunFailed {
			t.Fatalf("unexpected topic %q", evt.Topic)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected run.failed event")
	}
}

func TestSyncer_ZeroResolvedAborts(t *testing.T) {
	provider := &fakeProvider{records: []domain.RawBroadcast{{Route: "a", EpisodeNumber: 1, EpisodeDate: testX.Format(time.RFC3339)}}}
	store := &memStore{}

	_, err := newTestSyncer(provider, &fakeResolver{}, store, nil).Run(context.Background())
	if !errors.Is(err, ErrNoResolvedSeries) {
		t.Fatalf("expected ErrNoResolvedSeries, got %v", err)
	}
	if store.scheduleSaves != 0 || store.feedSaves != 0 {
		t.Fatalf("schedule and feed must not be written: %+v", store)
	}
}

func TestSyncer_SecondRunIsNoop(t *testing.T) {
	provider := &fakeProvider{records: []domain.RawBroadcast{
		{Route: "a", EpisodeNumber: 2, EpisodeDate: testNow.Add(-day).Format(time.RFC3339)},
	}}
	resolver := &fakeResolver{byRoute: map[string]domain.SeriesIdentity{"a": {SeriesID: 1, CanonicalTitle: "A"}}}
	store := &memStore{}
	s := newTestSyncer(provider, resolver, store, nil)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := append([]domain.FeedEpisode(nil), store.feed...)
	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Added+summary.Backfilled+summary.Removed+summary.Corrected != 0 {
		t.Fatalf("second run should not change anything: %+v", summary)
	}
	if len(store.feed) != len(first) {
		t.Fatalf("feed size changed: %d -> %d", len(first), len(store.feed))
	}
}

func TestSyncer_UnreadableFeedWritesNothing(t *testing.T) {
	provider := &fakeProvider{records: []domain.RawBroadcast{
		{Route: "a", EpisodeNumber: 2, EpisodeDate: testNow.Add(-day).Format(time.RFC3339)},
	}}
	resolver := &fakeResolver{byRoute: map[string]domain.SeriesIdentity{"a": {SeriesID: 1, CanonicalTitle: "A"}}}
	store := &memStore{loadErr: errors.New("decode episodeFeed.json: unexpected end of JSON input")}

	_, err := newTestSyncer(provider, resolver, store, nil).Run(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if store.rawSaves+store.scheduleSaves+store.feedSaves != 0 {
		t.Fatalf("nothing should be written when the feed cannot be read: %+v", store)
	}
}

func TestSyncer_JSONStoreRunsAreIdempotentWithMilliseconds(t *testing.T) {
	provider := &fakeProvider{records: []domain.RawBroadcast{
		{Route: "a", EpisodeNumber: 3, EpisodeDate: "2025-02-22T16:30:00.500Z"},
	}}
	resolver := &fakeResolver{byRoute: map[string]domain.SeriesIdentity{"a": {SeriesID: 1, CanonicalTitle: "A"}}}
	fsys := afero.NewMemMapFs()
	s := newTestSyncer(provider, resolver, jsonfile.New(fsys, "/data"), nil)

	first, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Added != 1 || first.Backfilled != 2 {
		t.Fatalf("unexpected first run %+v", first)
	}

	for i := 2; i <= 3; i++ {
		// Relecture depuis le disque à chaque run.
		s.store = jsonfile.New(fsys, "/data")
		summary, err := s.Run(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if summary.Added+summary.Backfilled+summary.Removed+summary.Corrected != 0 {
			t.Fatalf("run %d should not change the feed: %+v", i, summary)
		}
	}

	feed, err := jsonfile.New(fsys, "/data").LoadFeed(context.Background())
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	latest, ok := findEpisode(feed, 1, 3)
	want := time.Date(2025, 2, 22, 16, 30, 0, 500*int(time.Millisecond), time.UTC)
	if !ok || !latest.AiredAt.Equal(want) {
		t.Fatalf("episode 3: want %v, got %+v", want, latest)
	}
}
