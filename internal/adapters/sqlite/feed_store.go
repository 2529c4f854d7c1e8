package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
)

// FeedStore implémente ports.FeedStore. Chaque Save remplace la table dans une transaction;
// la colonne position conserve l'ordre de la collection.
type FeedStore struct {
	db *DB
}

func NewFeedStore(db *DB) *FeedStore {
	return &FeedStore{db: db}
}

func (s *FeedStore) LoadFeed(ctx context.Context) ([]domain.FeedEpisode, error) {
	rows, err := s.db.SQL.QueryContext(ctx, `
		SELECT series_id, series_secondary_id, episode_number, aired_at
		FROM feed_episodes
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.FeedEpisode{}
	for rows.Next() {
		var ep domain.FeedEpisode
		var secondary sql.NullInt64
		var aired string
		if err := rows.Scan(&ep.SeriesID, &secondary, &ep.EpisodeNumber, &aired); err != nil {
			return nil, err
		}
		if secondary.Valid {
			v := int(secondary.Int64)
			ep.SeriesSecondaryID = &v
		}
		t, err := time.Parse(time.RFC3339Nano, aired)
		if err != nil {
			return nil, fmt.Errorf("feed episode %d/%d: invalid aired_at %q: %w", ep.SeriesID, ep.EpisodeNumber, aired, err)
		}
		ep.AiredAt = t.UTC()
		out = append(out, ep)
	}
	return out, rows.Err()
}

func (s *FeedStore) SaveFeed(ctx context.Context, feed []domain.FeedEpisode) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM feed_episodes`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO feed_episodes(series_id, series_secondary_id, episode_number, aired_at, position)
			VALUES(?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, ep := range feed {
			var secondary any
			if ep.SeriesSecondaryID != nil {
				secondary = *ep.SeriesSecondaryID
			}
			if _, err := stmt.ExecContext(ctx, ep.SeriesID, secondary, ep.EpisodeNumber, ep.AiredAt.UTC().Format(time.RFC3339Nano), i); err != nil {
				return fmt.Errorf("insert feed episode %d/%d: %w", ep.SeriesID, ep.EpisodeNumber, err)
			}
		}
		return nil
	})
}

func (s *FeedStore) LoadSchedule(ctx context.Context) ([]domain.ScheduleEntry, error) {
	rows, err := s.db.SQL.QueryContext(ctx, `SELECT entry_json FROM schedule_entries ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ScheduleEntry{}
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		var e domain.ScheduleEntry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("decode schedule entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *FeedStore) SaveSchedule(ctx context.Context, schedule []domain.ScheduleEntry) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_entries`); err != nil {
			return err
		}
		for i, e := range schedule {
			b, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schedule_entries(series_id, position, entry_json) VALUES(?, ?, ?)`, e.SeriesID, i, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *FeedStore) SaveRawSchedule(ctx context.Context, records []domain.RawBroadcast) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM raw_schedule`); err != nil {
			return err
		}
		for i, rec := range records {
			b, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO raw_schedule(position, route, record_json) VALUES(?, ?, ?)`, i, rec.Route, b); err != nil {
				return err
			}
		}
		return nil
	})
}
