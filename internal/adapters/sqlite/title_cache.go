package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
	"github.com/Guilhem-Bonnet/dubfeed/internal/ports"
)

type TitleCache struct {
	db *sql.DB
}

func NewTitleCache(db *DB) *TitleCache {
	return &TitleCache{db: db.SQL}
}

func (c *TitleCache) Get(ctx context.Context, key string) (domain.SeriesIdentity, error) {
	var id domain.SeriesIdentity
	var secondary sql.NullInt64
	err := c.db.QueryRowContext(ctx, `
		SELECT series_id, series_secondary_id, canonical_title
		FROM title_cache
		WHERE key = ?
	`, key).Scan(&id.SeriesID, &secondary, &id.CanonicalTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SeriesIdentity{}, ports.ErrNotFound
		}
		return domain.SeriesIdentity{}, err
	}
	if secondary.Valid {
		v := int(secondary.Int64)
		id.SeriesSecondaryID = &v
	}
	return id, nil
}

func (c *TitleCache) Put(ctx context.Context, key string, id domain.SeriesIdentity) error {
	var secondary any
	if id.SeriesSecondaryID != nil {
		secondary = *id.SeriesSecondaryID
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO title_cache(key, series_id, series_secondary_id, canonical_title, updated_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			series_id = excluded.series_id,
			series_secondary_id = excluded.series_secondary_id,
			canonical_title = excluded.canonical_title,
			updated_at = excluded.updated_at
	`, key, id.SeriesID, secondary, id.CanonicalTitle, time.Now().UTC().Format(time.RFC3339))
	return err
}
