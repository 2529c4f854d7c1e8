package domain

import "time"

const Week = 7 * 24 * time.Hour

// RollForward décale date de weeks semaines si elle est déjà passée (ou si force).
// weeks peut être négatif.
func RollForward(date time.Time, weeks int, force bool, now time.Time) time.Time {
	if date.Before(now) || force {
		return date.AddDate(0, 0, 7*weeks)
	}
	return date
}

// IsCurrentlyDelayed est le seul critère de retard: delayedUntil présent,
// pas antérieur à episodeDate, et encore dans le futur.
func IsCurrentlyDelayed(e ScheduleEntry, now time.Time) bool {
	if e.DelayedUntil == nil {
		return false
	}
	until := *e.DelayedUntil
	return !until.Before(e.EpisodeDate) && until.After(now)
}

// OnWeeklyPhase indique si a et b tombent sur le même jour de la semaine à la même heure.
func OnWeeklyPhase(a, b time.Time) bool {
	return b.Sub(a)%Week == 0
}
