// Package daterange turns coarse filter presets into concrete time boundaries.
// Every function is pure and uses the location of its reference instant.
package daterange

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/crewdesk/internal/domain"
)

type Preset string

const (
	PresetToday  Preset = "today"
	PresetWeek   Preset = "week"
	PresetMonth  Preset = "month"
	PresetCustom Preset = "custom"
	// PresetAll disables date filtering. Only Select accepts it.
	PresetAll Preset = "all"
)

// ParsePreset accepts a preset tag, case-insensitively. An empty tag means today.
func ParsePreset(s string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PresetToday, nil
	case PresetToday, PresetWeek, PresetMonth, PresetCustom:
		return p, nil
	default:
		return "", domain.NewValidationError("range", "unknown preset %q", s)
	}
}

// Range is a window whose Start and End are both inclusive.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func (r Range) String() string {
	return fmt.Sprintf("%s .. %s", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// Resolve maps a preset to its window around ref. PresetCustom has no
// implicit bounds and must go through Custom.
func Resolve(p Preset, ref time.Time) (Range, error) {
	switch p {
	case PresetToday:
		return Today(ref), nil
	case PresetWeek:
		return RollingWeek(ref), nil
	case PresetMonth:
		return Month(ref), nil
	case PresetCustom:
		return Range{}, domain.NewValidationError("range", "custom range requires explicit start and end")
	default:
		return Range{}, domain.NewValidationError("range", "unknown preset %q", p)
	}
}

// Custom builds an explicit range from start-of-day(start) to end-of-day(end).
func Custom(start, end time.Time) (Range, error) {
	if start.IsZero() || end.IsZero() {
		return Range{}, domain.NewValidationError("range", "custom range requires start and end")
	}
	r := Range{Start: StartOfDay(start), End: EndOfDay(end)}
	if r.End.Before(r.Start) {
		return Range{}, domain.NewValidationError("range", "end %s is before start %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return r, nil
}

// Select resolves user input into a range around ref: a preset name, or an
// explicit from/to pair of YYYY-MM-DD days in ref's location. Setting either
// day implies a custom range. PresetAll yields nil.
func Select(preset, from, to string, ref time.Time) (*Range, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	explicit := from != "" || to != ""

	if !explicit {
		if Preset(strings.ToLower(strings.TrimSpace(preset))) == PresetAll {
			return nil, nil
		}
		p, err := ParsePreset(preset)
		if err != nil {
			return nil, err
		}
		r, err := Resolve(p, ref)
		if err != nil {
			return nil, err
		}
		return &r, nil
	}

	start, err := ParseDay(from, ref.Location())
	if err != nil {
		return nil, err
	}
	end, err := ParseDay(to, ref.Location())
	if err != nil {
		return nil, err
	}
	r, err := Custom(start, end)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ParseDay parses YYYY-MM-DD as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, domain.NewValidationError("date", "is required")
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date", "%q is not YYYY-MM-DD", s)
	}
	return t, nil
}

// Today is [start-of-day(ref), end-of-day(ref)].
func Today(ref time.Time) Range {
	return Range{Start: StartOfDay(ref), End: EndOfDay(ref)}
}

// RollingWeek is seven calendar days beginning today, not an ISO week.
func RollingWeek(ref time.Time) Range {
	start := StartOfDay(ref)
	return Range{Start: start, End: EndOfDay(AddDays(start, 6))}
}

// Month is the calendar month containing ref.
func Month(ref time.Time) Range {
	return Range{Start: StartOfMonth(ref), End: EndOfMonth(ref)}
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay is the last millisecond of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// AddDays moves by calendar days, keeping wall-clock time across DST changes.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth is one millisecond before the first instant of the next month.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Millisecond)
}
