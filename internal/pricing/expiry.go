package pricing

import (
	"fmt"
	"sort"
	"time"
)

// MatchMode picks a listed expiry relative to a target date.
type MatchMode string

const (
	MatchExact   MatchMode = "exact"   // must match exactly
	MatchHigher  MatchMode = "higher"  // first listed date after target
	MatchLower   MatchMode = "lower"   // last listed date before target
	MatchNearest MatchMode = "nearest" // closest listed date (default)
)

// ParseMatchMode accepts the four mode names; empty means nearest.
func ParseMatchMode(s string) (MatchMode, error) {
	switch m := MatchMode(s); m {
	case MatchExact, MatchHigher, MatchLower, MatchNearest:
		return m, nil
	case "":
		return MatchNearest, nil
	}
	return "", fmt.Errorf("invalid match mode %q", s)
}

// MonthlyExpiries lists the next n standard monthly expirations (third
// Friday, 16:00 in from's location) on or after from.
func MonthlyExpiries(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	y, m, _ := from.Date()
	for len(out) < n {
		first := time.Date(y, m, 1, 16, 0, 0, 0, from.Location())
		offset := (int(time.Friday) - int(first.Weekday()) + 7) % 7
		third := first.AddDate(0, 0, offset+14)
		if !third.Before(from) {
			out = append(out, third)
		}
		m++
		if m > time.December {
			m, y = time.January, y+1
		}
	}
	return out
}

// ResolveExpiration picks the listed expiry matching from+offsetDays under
// mode. The zero time means nothing matched.
func ResolveExpiration(from time.Time, offsetDays int, expiries []time.Time, mode MatchMode) time.Time {
	return matchDate(from.AddDate(0, 0, offsetDays), expiries, mode)
}

func matchDate(d time.Time, dates []time.Time, mode MatchMode) time.Time {
	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var exact, lower, higher time.Time
	for _, dt := range sorted {
		switch {
		case dt.Equal(d):
			exact = dt
		case dt.Before(d):
			lower = dt // last before d
		case higher.IsZero():
			higher = dt
		}
	}

	switch mode {
	case MatchExact:
		return exact
	case MatchLower:
		return lower
	case MatchHigher:
		return higher
	}

	if !exact.IsZero() {
		return exact
	}
	switch {
	case !lower.IsZero() && !higher.IsZero():
		if d.Sub(lower) <= higher.Sub(d) {
			return lower
		}
		return higher
	case !lower.IsZero():
		return lower
	}
	return higher
}
