package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/Guilhem-Bonnet/dubfeed/internal/adapters/jsonfile"
	"github.com/Guilhem-Bonnet/dubfeed/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/dubfeed/internal/app"
	"github.com/Guilhem-Bonnet/dubfeed/internal/config"
	"github.com/Guilhem-Bonnet/dubfeed/internal/logging"
	"github.com/Guilhem-Bonnet/dubfeed/internal/ports"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	closers []io.Closer
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = &cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i].Close()
	}
	c.closers = nil
}

func (c *commandContext) logger(cfg *config.Config, app string) (zerolog.Logger, error) {
	logger, closer, err := logging.New(cfg.Log, app, os.Stderr)
	if err != nil {
		return zerolog.Nop(), err
	}
	c.closers = append(c.closers, closer)
	return logger, nil
}

type storage struct {
	feed  ports.FeedStore
	cache ports.TitleCache
}

// openStorage ouvre le backend configuré (fichiers JSON ou SQLite).
func (c *commandContext) openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.DBPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return storage{}, fmt.Errorf("create db dir: %w", err)
			}
		}
		db, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return storage{}, fmt.Errorf("open db: %w", err)
		}
		c.closers = append(c.closers, db)
		logger.Debug().Str("db", cfg.DBPath).Msg("sqlite store opened")
		return storage{feed: sqlite.NewFeedStore(db), cache: sqlite.NewTitleCache(db)}, nil
	default:
		store := jsonfile.New(afero.NewOsFs(), cfg.DataDir)
		store.Readable = cfg.Readable
		logger.Debug().Str("dir", cfg.DataDir).Msg("json store opened")
		return storage{feed: store, cache: store}, nil
	}
}

// newSyncer assemble le pipeline complet à partir de la config.
func (c *commandContext) newSyncer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, bus ports.EventBus) (*app.Syncer, storage, error) {
	if err := cfg.Validate(true); err != nil {
		return nil, storage{}, err
	}
	st, err := c.openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, storage{}, err
	}

	provider := app.NewAnimeScheduleService(cfg.AnimeSchedule.Token).WithBaseURL(cfg.AnimeSchedule.URL)
	anilist := app.NewAniListService().WithEndpoint(cfg.AniList.URL)
	resolver := app.NewTitleResolver(logger.With().Str("component", "resolver").Logger(), anilist, st.cache)

	syncer := app.NewSyncer(logger.With().Str("component", "sync").Logger(), provider, resolver, st.feed, bus)
	return syncer, st, nil
}
