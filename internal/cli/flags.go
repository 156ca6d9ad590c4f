package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/daterange"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/spf13/pflag"
)

// rangeFlags is the shared --range/--from/--to flag set.
type rangeFlags struct {
	preset string
	from   string
	to     string
}

func (f *rangeFlags) register(fs *pflag.FlagSet, def string) {
	fs.StringVar(&f.preset, "range", def, "Date range: today, week, month, custom or all")
	fs.StringVar(&f.from, "from", "", "Custom range start (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "Custom range end (YYYY-MM-DD), inclusive")
}

// resolve returns nil for "all". Setting --from or --to implies custom.
func (f *rangeFlags) resolve(now time.Time) (*daterange.Range, error) {
	return daterange.Select(f.preset, f.from, f.to, now)
}

var dateTimeLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", time.RFC3339}

// parseDateTime accepts "YYYY-MM-DD HH:MM" in loc, or RFC 3339.
func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.NewValidationError("time", "%q is not \"YYYY-MM-DD HH:MM\"", s)
}

// resolveJobID accepts a full id or an unambiguous id prefix.
func resolveJobID(ctx context.Context, app *App, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", domain.NewValidationError("job", "id is required")
	}
	if _, err := app.Jobs.GetByID(ctx, input); err == nil {
		return input, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	jobs, err := app.Jobs.List(ctx, contract.JobFilter{})
	if err != nil {
		return "", err
	}
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return matchPrefix("job", input, ids)
}

// resolveEntryID is resolveJobID for work log entries.
func resolveEntryID(ctx context.Context, app *App, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", domain.NewValidationError("entry", "id is required")
	}
	if _, err := app.WorkLogs.GetByID(ctx, input); err == nil {
		return input, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	entries, err := app.WorkLogs.List(ctx, contract.WorkLogFilter{})
	if err != nil {
		return "", err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return matchPrefix("work log", input, ids)
}

func matchPrefix(entity, input string, ids []string) (string, error) {
	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, input) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s %q: %w", entity, input, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", domain.NewValidationError("id", "%s prefix %q is ambiguous (%d matches)", entity, input, len(matches))
	}
}
