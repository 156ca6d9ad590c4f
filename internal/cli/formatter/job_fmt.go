package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/report"
)

// FormatJobList renders jobs as a table inside a bordered box.
func FormatJobList(jobs []*domain.Job, loc *time.Location) string {
	return RenderBox("Jobs", jobTable(jobs, loc, true))
}

func jobTable(jobs []*domain.Job, loc *time.Location, withDate bool) string {
	headers := []string{"ID", "DATE", "TIME", "CLIENT", "DURATION", "STATUS", "WORKERS"}
	if !withDate {
		headers = []string{"ID", "TIME", "CLIENT", "DURATION", "STATUS", "WORKERS"}
	}
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		row := []string{TruncID(j.ID)}
		if withDate {
			row = append(row, j.Date.In(loc).Format(time.DateOnly))
		}
		row = append(row,
			ClockLabel(j.Date, loc),
			Bold(j.ClientID),
			report.FormatDuration(j.DurationMinutes),
			StatusPill(j.Status),
			workers(j.AssignedUserIDs),
		)
		rows = append(rows, row)
	}
	return RenderTable(headers, rows)
}

func workers(ids []string) string {
	if len(ids) == 0 {
		return Dim("unassigned")
	}
	return strings.Join(ids, ", ")
}

// FormatJob renders a single job card.
func FormatJob(j *domain.Job, loc *time.Location) string {
	var b strings.Builder
	field := func(label, value string) {
		fmt.Fprintf(&b, "%s  %s\n", StyleDim.Render(fmt.Sprintf("%-9s", label)), value)
	}

	field("ID", j.ID)
	field("STATUS", StatusPill(j.Status))
	field("CLIENT", Bold(j.ClientID))
	field("WHEN", fmt.Sprintf("%s %s-%s",
		j.Date.In(loc).Format("Mon, Jan 2 2006"), ClockLabel(j.Date, loc), ClockLabel(j.EndsAt(), loc)))
	field("DURATION", report.FormatDuration(j.DurationMinutes))
	field("WORKERS", workers(j.AssignedUserIDs))
	if j.Location != nil {
		field("LOCATION", strings.TrimSpace(j.Location.Label+" "+j.Location.Address))
	}
	if j.Notes != "" {
		field("NOTES", j.Notes)
	}
	field("VERSION", Dim(fmt.Sprintf("%d", j.Version)))

	return RenderBox("Job", strings.TrimRight(b.String(), "\n"))
}

// FormatStats renders the dashboard counters.
func FormatStats(s report.Stats) string {
	rows := [][]string{
		{"Scheduled today", fmt.Sprintf("%d", s.TodayScheduled)},
		{"Scheduled this week", fmt.Sprintf("%d", s.WeekScheduled)},
		{"Completed this week", StyleGreen.Render(fmt.Sprintf("%d", s.CompletedThisWeek))},
	}
	t := Table{Headers: []string{"METRIC", "JOBS"}, Rows: rows, RightAlign: map[int]bool{1: true}}
	return RenderBox("Overview", strings.TrimRight(t.Render(), "\n"))
}

// FormatDays renders day buckets, one section per day.
func FormatDays(buckets []report.DayBucket, now time.Time) string {
	if len(buckets) == 0 {
		return Dim("No jobs in range.")
	}
	loc := now.Location()
	sections := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		title := fmt.Sprintf("%s (%d)", DayLabel(bucket.Day, now), len(bucket.Jobs))
		sections = append(sections, Header(title)+"\n"+jobTable(bucket.Jobs, loc, false))
	}
	return strings.Join(sections, "\n")
}
