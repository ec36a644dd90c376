// Package timeutil formats times and durations for fsbrokerctl output.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// LocalTimeFormat renders timestamps in the operator's zone.
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// FormatUptime renders a Go duration string like "72h30m15s" as
// "3d 0h 30m 15s". Unparseable input is returned unchanged.
func FormatUptime(uptime string) string {
	d, err := time.ParseDuration(uptime)
	if err != nil {
		return uptime
	}
	return formatDuration(d)
}

// FormatAge renders how long ago t was relative to now. A zero t renders
// as "-".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	return formatDuration(d)
}

// formatDuration prints whole seconds as "3d 0h 30m 15s", dropping
// leading zero units.
func formatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	units := []struct {
		n      int64
		suffix string
	}{
		{secs / 86400, "d"},
		{secs / 3600 % 24, "h"},
		{secs / 60 % 60, "m"},
		{secs % 60, "s"},
	}

	var b strings.Builder
	for i, u := range units {
		if b.Len() == 0 && u.n == 0 && i < len(units)-1 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d%s", u.n, u.suffix)
	}
	return b.String()
}

// FormatTime converts an RFC3339 timestamp from the API to local time.
// Anything unparseable is shown as received.
func FormatTime(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}
	return t.Local().Format(LocalTimeFormat)
}
