// Package config charge la configuration: valeurs par défaut, fichier TOML optionnel,
// puis variables d'environnement.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"

	// DefaultFile est lu depuis le répertoire courant quand --config n'est pas donné.
	DefaultFile = "dubfeed.toml"
)

var ErrTokenMissing = errors.New("ANIMESCHEDULE_TOKEN is not set")

type Config struct {
	DataDir  string `toml:"data_dir" env:"DUBFEED_DATA_DIR"`
	Store    string `toml:"store" env:"DUBFEED_STORE"`
	DBPath   string `toml:"db_path" env:"DUBFEED_DB_PATH"`
	Readable bool   `toml:"readable" env:"DUBFEED_READABLE"`

	Addr     string `toml:"addr" env:"DUBFEED_ADDR"`
	RunEvery string `toml:"run_every" env:"DUBFEED_RUN_EVERY"`

	AnimeSchedule AnimeScheduleConfig `toml:"animeschedule"`
	AniList       AniListConfig       `toml:"anilist"`
	Log           LogConfig           `toml:"log"`
}

type AnimeScheduleConfig struct {
	Token string `toml:"token" env:"ANIMESCHEDULE_TOKEN"`
	URL   string `toml:"url" env:"ANIMESCHEDULE_URL"`
}

type AniListConfig struct {
	URL string `toml:"url" env:"ANILIST_URL"`
}

type LogConfig struct {
	Level string `toml:"level" env:"DUBFEED_LOG_LEVEL"`
	// File active la sortie JSON rotative (lumberjack) en plus de la console.
	File       string `toml:"file" env:"DUBFEED_LOG_FILE"`
	MaxSizeMB  int    `toml:"max_size_mb" env:"DUBFEED_LOG_MAX_SIZE_MB"`
	MaxBackups int    `toml:"max_backups" env:"DUBFEED_LOG_MAX_BACKUPS"`
	JSON       bool   `toml:"json" env:"DUBFEED_LOG_JSON"`
}

func Default() Config {
	return Config{
		DataDir:  "data",
		Store:    StoreJSON,
		Readable: true,
		Addr:     "127.0.0.1:8080",
		RunEvery: "1h",
		AnimeSchedule: AnimeScheduleConfig{
			URL: "https://animeschedule.net",
		},
		AniList: AniListConfig{
			URL: "https://graphql.anilist.co",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load applique dans l'ordre: Default, le fichier TOML (path, ou DefaultFile s'il existe),
// puis l'environnement. Un path explicite introuvable est une erreur.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultFile
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.AnimeSchedule.Token = strings.TrimSpace(c.AnimeSchedule.Token)
	c.AnimeSchedule.URL = strings.TrimRight(strings.TrimSpace(c.AnimeSchedule.URL), "/")
	c.AniList.URL = strings.TrimSpace(c.AniList.URL)
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = filepath.Join(c.DataDir, "dubfeed.db")
	}
}

// Validate vérifie la config; requireToken est vrai pour les commandes qui appellent AnimeSchedule.
func (c Config) Validate(requireToken bool) error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is empty"))
	}
	switch c.Store {
	case StoreJSON, StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("store: unknown backend %q (want %s or %s)", c.Store, StoreJSON, StoreSQLite))
	}
	if _, err := c.RunInterval(); err != nil {
		errs = append(errs, err)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if requireToken && c.AnimeSchedule.Token == "" {
		errs = append(errs, ErrTokenMissing)
	}
	return errors.Join(errs...)
}

func (c Config) RunInterval() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.RunEvery))
	if err != nil {
		return 0, fmt.Errorf("run_every: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("run_every: must be positive, got %s", d)
	}
	return d, nil
}
