package pricing

import (
	"fmt"
	"time"
)

const (
	day        = 24 * time.Hour
	dateLayout = "2006-01-02"
)

// calendarDay strips the time of day from t as seen in loc. The result is
// pinned to UTC midnight so that the distance between two calendar days is
// always a whole number of 24h periods, DST or not.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntilCheckin returns the number of calendar days between now and
// checkin, both taken in now's location. Zero means check-in is today and a
// negative value means it has already passed.
func DaysUntilCheckin(now, checkin time.Time) int {
	loc := now.Location()
	return ceilDays(calendarDay(checkin, loc).Sub(calendarDay(now, loc)))
}

// NightsBetween returns the number of nights of a stay, never less than one.
// Both dates are read in start's location.
func NightsBetween(start, end time.Time) (int, error) {
	loc := start.Location()
	s, e := calendarDay(start, loc), calendarDay(end, loc)
	if e.Before(s) {
		return 0, fmt.Errorf("%w: %s < %s", ErrInvalidDateRange, e.Format(dateLayout), s.Format(dateLayout))
	}

	nights := roundDays(e.Sub(s))
	if nights < 1 {
		nights = 1
	}
	return nights, nil
}

// ceilDays rounds toward +inf; integer division already truncates toward
// zero, which is the ceiling for negative durations.
func ceilDays(d time.Duration) int {
	n := d / day
	if d%day > 0 {
		n++
	}
	return int(n)
}

func roundDays(d time.Duration) int {
	n := d / day
	if rem := d % day; rem*2 >= day {
		n++
	}
	return int(n)
}
