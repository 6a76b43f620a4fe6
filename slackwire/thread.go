package slackwire

import (
	"strconv"
	"strings"
	"time"
)

// ParseTimestamp converts a wire timestamp ("1355517523.000005") to a time.
// Malformed input yields the zero time.
func ParseTimestamp(ts string) time.Time {
	sec, frac, dot := strings.Cut(ts, ".")
	if !isDigits(sec) || (dot && !isDigits(frac)) {
		return time.Time{}
	}
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var nsec int64
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		n, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}
		}
		for i := len(frac); i < 9; i++ {
			n *= 10
		}
		nsec = n
	}
	return time.Unix(s, nsec)
}

// FormatThreadTimestamp renders a thread parent timestamp relative to now:
// the clock time for the same day, date and time otherwise.
func FormatThreadTimestamp(ts string, now time.Time) string {
	t := ParseTimestamp(ts)
	if t.IsZero() {
		return ts
	}
	t = t.In(now.Location())
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02 15:04:05")
}

// threadPrefix marks a reply with the time of the message it answers.
func threadPrefix(threadTS string, now time.Time) string {
	return "[thread " + FormatThreadTimestamp(threadTS, now) + "] "
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isWireTimestamp reports whether s looks like "1355517523.000005".
func isWireTimestamp(s string) bool {
	sec, frac, ok := strings.Cut(s, ".")
	return ok && isDigits(sec) && isDigits(frac)
}

// ParseThreadTime reads a time in either form FormatThreadTimestamp prints.
// A bare clock time is taken to be on now's day, in now's location.
func ParseThreadTime(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	loc := now.Location()
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, loc); err == nil {
		return t, true
	}
	t, err := time.ParseInLocation("15:04:05", s, loc)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc), true
}
