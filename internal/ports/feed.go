package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
)

// FeedStore persiste le feed et les snapshots de timetable.
// Chaque Save remplace entièrement la collection; un Load sur un emplacement
// inexistant crée une collection vide.
type FeedStore interface {
	LoadFeed(ctx context.Context) ([]domain.FeedEpisode, error)
	SaveFeed(ctx context.Context, feed []domain.FeedEpisode) error
	LoadSchedule(ctx context.Context) ([]domain.ScheduleEntry, error)
	SaveSchedule(ctx context.Context, schedule []domain.ScheduleEntry) error
	SaveRawSchedule(ctx context.Context, records []domain.RawBroadcast) error
}
