// Package period maps instants to calendar bucket identifiers and back.
//
// Identifiers are zero-padded and big-endian ("2025", "2025-07", "2025-W30"),
// so lexicographic order matches chronological order within a granularity.
// All arithmetic happens in UTC.
package period

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Granularity string

const (
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

var (
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrMalformedPeriod    = errors.New("malformed period identifier")
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether Start <= t < End.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Overlaps reports whether the two intervals share any instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// ParseGranularity accepts week|month|year and the adjective forms used by
// the chat menus (weekly|monthly|yearly).
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly":
		return Week, nil
	case "month", "monthly":
		return Month, nil
	case "year", "yearly":
		return Year, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
}

func (g Granularity) Validate() error {
	switch g {
	case Week, Month, Year:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidGranularity, string(g))
	}
}

// ID returns the identifier of the bucket containing t.
func ID(t time.Time, g Granularity) (string, error) {
	t = t.UTC()
	switch g {
	case Week:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w), nil
	case Month:
		return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())), nil
	case Year:
		return fmt.Sprintf("%04d", t.Year()), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, string(g))
	}
}

// Bounds returns the interval named by id.
func Bounds(id string, g Granularity) (Interval, error) {
	switch g {
	case Week:
		year, week, err := parseWeek(id)
		if err != nil {
			return Interval{}, err
		}
		start := isoWeekStart(year, week)
		return Interval{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case Month:
		year, month, err := parseMonth(id)
		if err != nil {
			return Interval{}, err
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return Interval{Start: start, End: start.AddDate(0, 1, 0)}, nil
	case Year:
		year, err := parseYear(id, id)
		if err != nil {
			return Interval{}, err
		}
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return Interval{Start: start, End: start.AddDate(1, 0, 0)}, nil
	default:
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidGranularity, string(g))
	}
}

// Previous returns the identifier of the bucket immediately before id.
func Previous(id string, g Granularity) (string, error) {
	b, err := Bounds(id, g)
	if err != nil {
		return "", err
	}
	return ID(b.Start.Add(-time.Nanosecond), g)
}

// SortDescending orders identifiers most recent first.
func SortDescending(ids []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
}

// WeeksInYear returns 52 or 53 for the given ISO year.
func WeeksInYear(year int) int {
	// Dec 28 always falls in the last ISO week of its year.
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// isoWeekStart returns the Monday that starts the given ISO week.
func isoWeekStart(year, week int) time.Time {
	// Jan 4 is always in week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7 // days since Monday
	week1 := jan4.AddDate(0, 0, -offset)
	return week1.AddDate(0, 0, (week-1)*7)
}

func parseYear(s, id string) (int, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedPeriod, id)
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 1 || !allDigits(s) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedPeriod, id)
	}
	return year, nil
}

func parseMonth(id string) (int, int, error) {
	if len(id) != 7 || id[4] != '-' {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedPeriod, id)
	}
	year, err := parseYear(id[:4], id)
	if err != nil {
		return 0, 0, err
	}
	month, err := strconv.Atoi(id[5:])
	if err != nil || !allDigits(id[5:]) || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedPeriod, id)
	}
	return year, month, nil
}

func parseWeek(id string) (int, int, error) {
	if len(id) != 8 || id[4:6] != "-W" {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedPeriod, id)
	}
	year, err := parseYear(id[:4], id)
	if err != nil {
		return 0, 0, err
	}
	week, err := strconv.Atoi(id[6:])
	if err != nil || !allDigits(id[6:]) || week < 1 || week > WeeksInYear(year) {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedPeriod, id)
	}
	return year, week, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
