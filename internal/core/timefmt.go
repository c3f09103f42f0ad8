package core

import (
	"time"

	"github.com/dustin/go-humanize"
)

// RelativeTime renders t relative to now, e.g. "3 minutes ago".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	if now.Sub(t) < time.Minute && !t.After(now) {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// DividerLabel renders the label of a timestamp divider.
func DividerLabel(t, now time.Time) string {
	local := t.Local()
	today := startOfDay(now.Local())
	switch day := startOfDay(local); {
	case day.Equal(today):
		return "Today " + local.Format("15:04")
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday " + local.Format("15:04")
	case local.Year() == now.Year():
		return local.Format("Mon Jan 2 15:04")
	default:
		return local.Format("Jan 2 2006 15:04")
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
