package domain

import (
	"fmt"
	"strings"
)

// maxReadableSeconds is 100 years; client ETAs beyond that are noise
// (qBittorrent reports 8640000 for "unknown", other clients use MaxInt).
const maxReadableSeconds = 100 * 365 * 24 * 60 * 60

// FormatDuration renders a second count as natural language, e.g.
// "1 day 1 hour 1 minute". Seconds are dropped once the value reaches a
// full minute. Negative or absurdly large values yield ok=false.
func FormatDuration(seconds int64) (string, bool) {
	if seconds < 0 || seconds > maxReadableSeconds {
		return "", false
	}
	if seconds == 0 {
		return "0 seconds", true
	}
	if seconds < 60 {
		return plural(seconds, "second"), true
	}

	minutes := seconds / 60
	if minutes < 60 {
		return plural(minutes, "minute"), true
	}

	hours := minutes / 60
	minutes %= 60
	if hours < 24 {
		return joinUnits(plural(hours, "hour"), pluralNonZero(minutes, "minute")), true
	}

	days := hours / 24
	hours %= 24
	return joinUnits(plural(days, "day"), pluralNonZero(hours, "hour"), pluralNonZero(minutes, "minute")), true
}

func plural(value int64, unit string) string {
	if value == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", value, unit)
}

func pluralNonZero(value int64, unit string) string {
	if value == 0 {
		return ""
	}
	return plural(value, unit)
}

func joinUnits(parts ...string) string {
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}
