package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
	"github.com/Guilhem-Bonnet/dubfeed/internal/ports"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFeedStore_EmptyAndReplace(t *testing.T) {
	ctx := context.Background()
	store := NewFeedStore(openTestDB(t))

	got, err := store.LoadFeed(ctx)
	if err != nil {
		t.Fatalf("LoadFeed(empty): %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil feed, got %#v", got)
	}

	mal := 52991
	aired := time.Date(2025, 2, 8, 16, 30, 0, 0, time.UTC)
	first := []domain.FeedEpisode{
		{SeriesID: 154587, SeriesSecondaryID: &mal, EpisodeNumber: 5, AiredAt: aired},
		{SeriesID: 21, EpisodeNumber: 1100, AiredAt: aired.Add(-time.Hour)},
		{SeriesID: 154587, SeriesSecondaryID: &mal, EpisodeNumber: 4, AiredAt: aired.Add(-domain.Week)},
	}
	if err := store.SaveFeed(ctx, first); err != nil {
		t.Fatalf("SaveFeed: %v", err)
	}

	got, err = store.LoadFeed(ctx)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if len(got) != len(first) {
		t.Fatalf("expected %d entries, got %d", len(first), len(got))
	}
	for i := range first {
		if got[i].Key() != first[i].Key() || !got[i].AiredAt.Equal(first[i].AiredAt) {
			t.Fatalf("entry %d: want %+v, got %+v", i, first[i], got[i])
		}
	}
	if got[0].SeriesSecondaryID == nil || *got[0].SeriesSecondaryID != mal {
		t.Fatalf("expected idMal %d, got %v", mal, got[0].SeriesSecondaryID)
	}
	if got[1].SeriesSecondaryID != nil {
		t.Fatalf("expected absent idMal, got %v", *got[1].SeriesSecondaryID)
	}

	// Un second Save remplace la collection entière.
	if err := store.SaveFeed(ctx, first[:1]); err != nil {
		t.Fatalf("SaveFeed(replace): %v", err)
	}
	got, err = store.LoadFeed(ctx)
	if err != nil {
		t.Fatalf("LoadFeed(after replace): %v", err)
	}
	if len(got) != 1 || got[0].EpisodeNumber != 5 {
		t.Fatalf("expected only episode 5, got %+v", got)
	}
}

func TestFeedStore_SaveFeedRejectsDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	store := NewFeedStore(openTestDB(t))

	aired := time.Date(2025, 2, 8, 16, 30, 0, 0, time.UTC)
	if err := store.SaveFeed(ctx, []domain.FeedEpisode{{SeriesID: 1, EpisodeNumber: 1, AiredAt: aired}}); err != nil {
		t.Fatalf("SaveFeed: %v", err)
	}
	dup := []domain.FeedEpisode{
		{SeriesID: 2, EpisodeNumber: 1, AiredAt: aired},
		{SeriesID: 2, EpisodeNumber: 1, AiredAt: aired},
	}
	if err := store.SaveFeed(ctx, dup); err == nil {
		t.Fatalf("expected primary key violation")
	}

	// La transaction annulée laisse le feed précédent intact.
	got, err := store.LoadFeed(ctx)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if len(got) != 1 || got[0].SeriesID != 1 {
		t.Fatalf("expected previous feed to survive, got %+v", got)
	}
}

func TestFeedStore_ScheduleRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFeedStore(openTestDB(t))

	until := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	in := []domain.ScheduleEntry{
		{SeriesID: 2, Route: "b", LatestEpisodeNumber: 1, EpisodeDate: until},
		{SeriesID: 1, Route: "a", LatestEpisodeNumber: 4, EpisodeDate: until.Add(-48 * time.Hour), DelayedUntil: &until},
	}
	if err := store.SaveSchedule(ctx, in); err != nil {
		t.Fatalf("SaveSchedule: %v", err)
	}
	out, err := store.LoadSchedule(ctx)
	if err != nil {
		t.Fatalf("LoadSchedule: %v", err)
	}
	if len(out) != 2 || out[0].SeriesID != 2 || out[1].SeriesID != 1 {
		t.Fatalf("expected insertion order to be kept, got %+v", out)
	}
	if out[1].DelayedUntil == nil || !out[1].DelayedUntil.Equal(until) {
		t.Fatalf("expected delayedUntil to survive, got %v", out[1].DelayedUntil)
	}
	if out[0].DelayedUntil != nil {
		t.Fatalf("expected absent delay, got %v", out[0].DelayedUntil)
	}

	if err := store.SaveRawSchedule(ctx, []domain.RawBroadcast{{Route: "frieren", Title: "Frieren"}}); err != nil {
		t.Fatalf("SaveRawSchedule: %v", err)
	}
	var n int
	if err := store.db.SQL.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_schedule`).Scan(&n); err != nil {
		t.Fatalf("count raw_schedule: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 raw record, got %d", n)
	}
}

func TestTitleCache_GetPut(t *testing.T) {
	ctx := context.Background()
	cache := NewTitleCache(openTestDB(t))

	if _, err := cache.Get(ctx, "frieren"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mal := 52991
	if err := cache.Put(ctx, "frieren", domain.SeriesIdentity{SeriesID: 154587, SeriesSecondaryID: &mal, CanonicalTitle: "Sousou no Frieren"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Put(ctx, "frieren", domain.SeriesIdentity{SeriesID: 154587, CanonicalTitle: "Frieren"}); err != nil {
		t.Fatalf("Put(upsert): %v", err)
	}

	got, err := cache.Get(ctx, "frieren")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SeriesID != 154587 || got.CanonicalTitle != "Frieren" || got.SeriesSecondaryID != nil {
		t.Fatalf("unexpected identity %+v", got)
	}
}
