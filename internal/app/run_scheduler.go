package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type runner interface {
	Run(ctx context.Context) (RunSummary, error)
}

// RunScheduler relance le pipeline à intervalle fixe.
// Les runs s'exécutent dans la goroutine du ticker: ils ne se chevauchent jamais.
type RunScheduler struct {
	logger zerolog.Logger
	runs   runner

	TickInterval time.Duration
	RunAtStart   bool
}

func NewRunScheduler(logger zerolog.Logger, runs *Syncer, interval time.Duration) *RunScheduler {
	return &RunScheduler{
		logger:       logger,
		runs:         runs,
		TickInterval: interval,
		RunAtStart:   true,
	}
}

func (sch *RunScheduler) Run(ctx context.Context) {
	interval := sch.TickInterval
	if interval <= 0 {
		interval = time.Hour
	}

	if sch.RunAtStart {
		sch.tick(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sch.logger.Info().Msg("run scheduler stopped")
			return
		case <-ticker.C:
			sch.tick(ctx)
		}
	}
}

func (sch *RunScheduler) tick(ctx context.Context) {
	if sch.runs == nil || ctx.Err() != nil {
		return
	}
	// Le Syncer journalise déjà le détail de l'échec.
	if _, err := sch.runs.Run(ctx); err != nil {
		sch.logger.Warn().Err(err).Dur("next_in", sch.TickInterval).Msg("scheduled run failed")
	}
}
