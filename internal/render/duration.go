package render

import (
	"fmt"
	"strings"
)

var countdownCheckpoints = map[int]bool{
	1: true, 2: true, 3: true, 4: true, 5: true,
	10: true, 30: true, 60: true, 90: true, 120: true, 180: true, 300: true,
}

// ShouldCountdown reports whether a countdown at seconds remaining is announced
func ShouldCountdown(seconds int) bool {
	return countdownCheckpoints[seconds]
}

// PrettyDuration spells out a number of seconds, e.g. "1 hour, 1 minute, 1 second"
func PrettyDuration(seconds int) string {
	if seconds <= 0 {
		return "0 seconds"
	}
	hours, rest := seconds/3600, seconds%3600
	minutes, secs := rest/60, rest%60

	var parts []string
	for _, unit := range []struct {
		n    int
		name string
	}{{hours, "hour"}, {minutes, "minute"}, {secs, "second"}} {
		if unit.n == 0 {
			continue
		}
		if unit.n == 1 {
			parts = append(parts, fmt.Sprintf("1 %s", unit.name))
		} else {
			parts = append(parts, fmt.Sprintf("%d %ss", unit.n, unit.name))
		}
	}
	return strings.Join(parts, ", ")
}
