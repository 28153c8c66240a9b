// Package timespan converts the F-List relative-time encoding ("1y, 2mo, 3w, 4d, 5h, 6m, 7s")
// into absolute points in time. F-List only reports a rough "time since" for most events, so the
// result is as accurate as the encoding allows and no more.
package timespan

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// spanPattern matches the optional groups in their fixed order. Every group is optional, so a
// string that does not start with a group produces an empty leftmost match.
var spanPattern = regexp.MustCompile(`(?i)(?:(\d+)y(?:,\s)?)?(?:(\d+)mo(?:,\s)?)?(?:(\d+)w(?:,\s)?)?(?:(\d+)d(?:,\s)?)?(?:(\d+)h(?:,\s)?)?(?:(\d+)m(?:,\s)?)?(?:(\d+)s)?`)

// Span holds the decoded groups of a relative-time string. Absent groups are zero.
type Span struct {
	Years   int
	Months  int
	Weeks   int
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// ParseError reports a value that cannot carry a relative-time encoding at all.
type ParseError struct {
	Value any
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e == nil {
		return "timespan: parse error"
	}
	return fmt.Sprintf("timespan: expected string, got %T", e.Value)
}

// ParseSpan extracts the groups from s. It never fails: groups that do not match, or whose
// digits do not fit an int, are reported as zero.
func ParseSpan(s string) Span {
	m := spanPattern.FindStringSubmatch(s)
	if m == nil {
		return Span{}
	}
	return Span{
		Years:   atoi(m[1]),
		Months:  atoi(m[2]),
		Weeks:   atoi(m[3]),
		Days:    atoi(m[4]),
		Hours:   atoi(m[5]),
		Minutes: atoi(m[6]),
		Seconds: atoi(m[7]),
	}
}

// IsZero reports whether no group carries a value.
func (s Span) IsZero() bool {
	return s == Span{}
}

// Before returns now moved back by the span, one calendar field at a time in UTC: years,
// months, weeks as days, days, hours, minutes, seconds. Each step normalizes the calendar value
// before the next one runs, so "1mo" from March 31 lands on March 3 (or 2 in a leap year).
func (s Span) Before(now time.Time) time.Time {
	t := now.UTC()
	if s.Years != 0 {
		t = shift(t, -s.Years, 0, 0, 0, 0, 0)
	}
	if s.Months != 0 {
		t = shift(t, 0, -s.Months, 0, 0, 0, 0)
	}
	if s.Weeks != 0 {
		t = shift(t, 0, 0, -s.Weeks*7, 0, 0, 0)
	}
	if s.Days != 0 {
		t = shift(t, 0, 0, -s.Days, 0, 0, 0)
	}
	if s.Hours != 0 {
		t = shift(t, 0, 0, 0, -s.Hours, 0, 0)
	}
	if s.Minutes != 0 {
		t = shift(t, 0, 0, 0, 0, -s.Minutes, 0)
	}
	if s.Seconds != 0 {
		t = shift(t, 0, 0, 0, 0, 0, -s.Seconds)
	}
	return t
}

// Parse returns the point in time that s describes relative to now. Input without any group
// yields now (in UTC).
func Parse(s string, now time.Time) time.Time {
	return ParseSpan(s).Before(now)
}

// ParseValue is Parse for an untyped JSON value. It fails with *ParseError when v is not a string.
func ParseValue(v any, now time.Time) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, &ParseError{Value: v}
	}
	return Parse(s, now), nil
}

func shift(t time.Time, years, months, days, hours, minutes, seconds int) time.Time {
	return time.Date(
		t.Year()+years,
		t.Month()+time.Month(months),
		t.Day()+days,
		t.Hour()+hours,
		t.Minute()+minutes,
		t.Second()+seconds,
		t.Nanosecond(),
		time.UTC,
	)
}

func atoi(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
