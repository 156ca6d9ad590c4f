package report

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/alexanderramin/crewdesk/internal/domain"
)

// TotalMinutes sums the effective duration of every entry. Open entries
// contribute nothing.
func TotalMinutes(entries []*domain.WorkLogEntry) int {
	total := 0
	for _, e := range entries {
		if e != nil {
			total += e.EffectiveMinutes()
		}
	}
	return total
}

// WorkerTotal is one worker's summed minutes.
type WorkerTotal struct {
	Key     string `json:"key"`
	Name    string `json:"name,omitempty"`
	Minutes int    `json:"minutes"`
	Entries int    `json:"entries"`
}

// PerWorkerTotals groups entries by worker key (user id, then email, then
// "unknown") and sorts by total descending, ties by key.
func PerWorkerTotals(entries []*domain.WorkLogEntry) []WorkerTotal {
	byKey := make(map[string]*WorkerTotal)
	for _, e := range entries {
		if e == nil {
			continue
		}
		key := e.WorkerKey()
		t, ok := byKey[key]
		if !ok {
			t = &WorkerTotal{Key: key}
			byKey[key] = t
		}
		if t.Name == "" {
			t.Name = e.UserName
		}
		t.Minutes += e.EffectiveMinutes()
		t.Entries++
	}

	totals := make([]WorkerTotal, 0, len(byKey))
	for _, t := range byKey {
		totals = append(totals, *t)
	}
	slices.SortFunc(totals, func(a, b WorkerTotal) int {
		if c := cmp.Compare(b.Minutes, a.Minutes); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return totals
}

// FormatDuration renders minutes the way the timesheet screens show them:
// "0 mins", "45 mins", "1 hr", "2 hrs 30 min".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "0 mins"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d mins", minutes)
	}
	hours, rest := minutes/60, minutes%60
	unit := "hrs"
	if hours == 1 {
		unit = "hr"
	}
	if rest == 0 {
		return fmt.Sprintf("%d %s", hours, unit)
	}
	return fmt.Sprintf("%d %s %d min", hours, unit, rest)
}
