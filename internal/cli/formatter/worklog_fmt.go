package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/report"
)

// FormatWorkLogList renders entries with a total footer.
func FormatWorkLogList(entries []*domain.WorkLogEntry, loc *time.Location) string {
	headers := []string{"ID", "DATE", "WORKER", "CLIENT", "START", "END", "DURATION", "SOURCE"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		end := StyleYellow.Render("running")
		if e.EndTime != nil {
			end = ClockLabel(*e.EndTime, loc)
		}
		source := Dim("manual")
		if e.JobID != nil {
			source = "job " + TruncID(*e.JobID)
		}
		rows = append(rows, []string{
			TruncID(e.ID),
			e.WorkDate.In(loc).Format(time.DateOnly),
			Bold(workerLabel(e)),
			OrDash(firstNonBlank(e.ClientName, e.ClientID)),
			ClockLabel(e.StartTime, loc),
			end,
			report.FormatDuration(e.EffectiveMinutes()),
			source,
		})
	}
	t := Table{Headers: headers, Rows: rows, RightAlign: map[int]bool{6: true}}
	footer := fmt.Sprintf("%s %s", Dim("Total:"), Bold(report.FormatDuration(report.TotalMinutes(entries))))
	return RenderBox("Work log", t.Render()+"\n"+footer)
}

// FormatWorkerTotals renders per-worker sums, highest first.
func FormatWorkerTotals(totals []report.WorkerTotal) string {
	rows := make([][]string, 0, len(totals))
	sum := 0
	for _, w := range totals {
		rows = append(rows, []string{
			Bold(firstNonBlank(w.Name, w.Key)),
			Dim(w.Key),
			fmt.Sprintf("%d", w.Entries),
			report.FormatDuration(w.Minutes),
		})
		sum += w.Minutes
	}
	t := Table{
		Headers:    []string{"WORKER", "KEY", "ENTRIES", "TOTAL"},
		Rows:       rows,
		RightAlign: map[int]bool{2: true, 3: true},
	}
	footer := fmt.Sprintf("%s %s", Dim("All workers:"), Bold(report.FormatDuration(sum)))
	return RenderBox("Totals", t.Render()+"\n"+footer)
}

// FormatWorkLog renders a one-line confirmation for a recorded entry.
func FormatWorkLog(e *domain.WorkLogEntry, loc *time.Location) string {
	state := StyleYellow.Render("open")
	if e.EndTime != nil {
		state = StyleGreen.Render("closed") + " " + report.FormatDuration(e.EffectiveMinutes())
	}
	return fmt.Sprintf("%s %s %s %s",
		Bold(workerLabel(e)), Dim(e.ID), ClockLabel(e.StartTime, loc), state)
}

func workerLabel(e *domain.WorkLogEntry) string {
	return firstNonBlank(e.UserName, e.WorkerKey())
}

func firstNonBlank(vals ...string) string {
	return strings.TrimSpace(domain.CoalesceStr(vals...))
}
