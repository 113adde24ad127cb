package schedule

import (
	"sort"
	"time"
)

// TimestampLayout is the ISO-8601 identity of a capture timestamp.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Generate returns one capture timestamp per configured UTC hour for every
// calendar day in [start, end], ordered by (day, hour). Only the UTC date of
// start and end is considered. The result is strictly increasing and empty
// when end precedes start.
//
// Hours are normalized before use: duplicates collapse to one and values
// outside 0-23 are dropped, so the result may hold fewer than
// len(hoursUTC) timestamps per day. config.Validate rejects such lists
// before they reach a capture run.
func Generate(start, end time.Time, hoursUTC []int) []time.Time {
	first := truncateDay(start)
	last := truncateDay(end)
	if last.Before(first) {
		return nil
	}

	hours := uniqueSorted(hoursUTC)
	days := int(last.Sub(first).Hours()/24) + 1
	timestamps := make([]time.Time, 0, days*len(hours))

	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		for _, h := range hours {
			timestamps = append(timestamps, day.Add(time.Duration(h)*time.Hour))
		}
	}

	return timestamps
}

// Format renders ts as its ISO-8601 identity, e.g. 2025-09-04T02:00:00Z.
func Format(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}

// Parse is the inverse of Format.
func Parse(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func uniqueSorted(hours []int) []int {
	out := make([]int, 0, len(hours))
	seen := make(map[int]bool, len(hours))
	for _, h := range hours {
		if h < 0 || h > 23 || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}
