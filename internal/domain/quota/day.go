package quota

import "time"

// DayKey maps an instant to its UTC calendar-day bucket (YYYY-MM-DD).
// UTC keeps server and visitor clocks from producing different buckets for
// the same instant.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
