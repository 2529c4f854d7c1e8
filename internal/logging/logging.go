// Package logging construit le logger racine zerolog.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Guilhem-Bonnet/dubfeed/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New renvoie un logger qui écrit sur out (console lisible, ou JSON si cfg.JSON)
// et, si cfg.File est renseigné, en JSON dans un fichier rotatif.
// Le Closer ferme le fichier de log.
func New(cfg config.LogConfig, app string, out io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("log level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var console io.Writer = out
	if !cfg.JSON {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	var w io.Writer = console
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(console, file)
		closer = file
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Str("app", app).Logger()
	return logger, closer, nil
}
