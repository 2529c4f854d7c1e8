package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFeedEpisode_JSONShape(t *testing.T) {
	mal := 52991
	ep := FeedEpisode{
		SeriesID:          154587,
		SeriesSecondaryID: &mal,
		EpisodeNumber:     7,
		AiredAt:           time.Date(2025, 2, 8, 16, 30, 0, 0, time.UTC),
	}
	b, err := json.Marshal(ep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"id":154587`, `"idMal":52991`, `"aired":7`, `"airedAt":1739032200`, `"airedUTC":"2025-02-08T16:30:00Z"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}
}

func TestFeedEpisode_ReadsFractionalAiredAt(t *testing.T) {
	raw := `{"id":1,"idMal":null,"episode":{"aired":3,"airedAt":1739032200.5,"airedUTC":"2025-02-08T16:30:00.500Z"}}`
	var ep FeedEpisode
	if err := json.Unmarshal([]byte(raw), &ep); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := time.Date(2025, 2, 8, 16, 30, 0, 500*int(time.Millisecond), time.UTC)
	if !ep.AiredAt.Equal(want) {
		t.Fatalf("airedAt: want %v, got %v", want, ep.AiredAt)
	}
	if ep.SeriesSecondaryID != nil {
		t.Fatalf("expected nil idMal, got %v", *ep.SeriesSecondaryID)
	}
	if ep.Key() != (FeedKey{SeriesID: 1, EpisodeNumber: 3}) {
		t.Fatalf("unexpected key %+v", ep.Key())
	}
}

func TestFeedEpisode_KeepsMilliseconds(t *testing.T) {
	aired := time.Date(2025, 2, 22, 16, 30, 0, 500*int(time.Millisecond)+250, time.UTC)
	b, err := json.Marshal(FeedEpisode{SeriesID: 1, EpisodeNumber: 3, AiredAt: aired})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"airedAt":1740241800.5`) {
		t.Fatalf("expected fractional airedAt in %s", b)
	}

	var back FeedEpisode
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want := aired.Truncate(time.Millisecond); !back.AiredAt.Equal(want) {
		t.Fatalf("airedAt: want %v, got %v", want, back.AiredAt)
	}
}
