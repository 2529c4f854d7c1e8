package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
)

// ScheduleProvider récupère la timetable hebdomadaire des épisodes doublés.
type ScheduleProvider interface {
	FetchDubTimetable(ctx context.Context) ([]domain.RawBroadcast, error)
}

// TitleResolver associe une route (ou ses titres alternatifs) à une identité de série.
// Renvoie ErrNotFound quand rien ne correspond.
type TitleResolver interface {
	Resolve(ctx context.Context, rec domain.RawBroadcast) (domain.SeriesIdentity, error)
}

// TitleCache mémorise les résolutions réussies, indexées par titre normalisé.
type TitleCache interface {
	Get(ctx context.Context, key string) (domain.SeriesIdentity, error)
	Put(ctx context.Context, key string, id domain.SeriesIdentity) error
}
