// Package report holds pure reductions over job and work log snapshots.
// Callers recompute from the latest snapshot instead of tracking deltas.
package report

import (
	"slices"
	"time"

	"github.com/alexanderramin/crewdesk/internal/daterange"
	"github.com/alexanderramin/crewdesk/internal/domain"
)

// Stats is the dashboard summary of a job snapshot.
type Stats struct {
	TodayScheduled    int `json:"today_scheduled"`
	WeekScheduled     int `json:"week_scheduled"`
	CompletedThisWeek int `json:"completed_this_week"`
}

// StatsFor counts jobs relative to now. Day boundaries follow now's location,
// and the week is the rolling seven days starting today.
func StatsFor(jobs []*domain.Job, now time.Time) Stats {
	today := daterange.Today(now)
	week := daterange.RollingWeek(now)

	var s Stats
	for _, j := range jobs {
		if j == nil {
			continue
		}
		switch j.Status {
		case domain.JobScheduled:
			if week.Contains(j.Date) {
				s.WeekScheduled++
				if today.Contains(j.Date) {
					s.TodayScheduled++
				}
			}
		case domain.JobCompleted:
			if week.Contains(j.Date) {
				s.CompletedThisWeek++
			}
		}
	}
	return s
}

// DayBucket holds the jobs whose date falls on Day.
type DayBucket struct {
	Day  time.Time
	Jobs []*domain.Job
}

// GroupByDay partitions jobs by calendar day in loc. Buckets are ordered by
// day and jobs within a bucket by time; ties keep input order.
func GroupByDay(jobs []*domain.Job, loc *time.Location) []DayBucket {
	if loc == nil {
		loc = time.Local
	}
	byDay := make(map[time.Time]*DayBucket)
	for _, j := range jobs {
		if j == nil {
			continue
		}
		day := daterange.StartOfDay(j.Date.In(loc))
		b, ok := byDay[day]
		if !ok {
			b = &DayBucket{Day: day}
			byDay[day] = b
		}
		b.Jobs = append(b.Jobs, j)
	}

	buckets := make([]DayBucket, 0, len(byDay))
	for _, b := range byDay {
		slices.SortStableFunc(b.Jobs, func(a, c *domain.Job) int {
			return a.Date.Compare(c.Date)
		})
		buckets = append(buckets, *b)
	}
	slices.SortFunc(buckets, func(a, c DayBucket) int {
		return a.Day.Compare(c.Day)
	})
	return buckets
}
