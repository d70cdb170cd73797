// Package timeutil provides duration parsing, display formatting, and
// local-calendar helpers shared by the CLI, worker, and tray processes.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var durationRe = regexp.MustCompile(`^(?:(\d+)m)?(?:(\d+)s)?$`)

// ParseDuration converts a duration string to seconds.
// Accepted forms: "25" (minutes), "25m", "90s", "10m30s".
// Returns false for anything else, including "30s10m", fractions, and "1h".
func ParseDuration(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}

	if isDigits(raw) {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, false
		}
		return n * 60, true
	}

	m := durationRe.FindStringSubmatch(raw)
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, false
	}

	var minutes, seconds int64
	if m[1] != "" {
		minutes, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if m[2] != "" {
		seconds, _ = strconv.ParseInt(m[2], 10, 64)
	}
	return minutes*60 + seconds, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatMMSS formats seconds as MM:SS. Minutes are not wrapped at an hour,
// so 3661 renders as "61:01".
func FormatMMSS(seconds int64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatDateTime formats a Unix timestamp as "YYYY-MM-DD HH:MM" in local time.
func FormatDateTime(unix int64) string {
	return time.Unix(unix, 0).Local().Format("2006-01-02 15:04")
}

// StartOfDay returns the Unix timestamp of local midnight for the day
// containing unix.
func StartOfDay(unix int64) int64 {
	t := time.Unix(unix, 0).Local()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.Unix()
}
