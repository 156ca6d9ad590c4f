package cli

import (
	"fmt"

	"github.com/alexanderramin/crewdesk/internal/cli/formatter"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"github.com/spf13/cobra"
)

// follow prints every snapshot until the command context ends, the stream
// closes, or count snapshots were shown. Feed errors go to stderr and do
// not stop the stream.
func follow[T any](cmd *cobra.Command, sub *feed.Subscription[T], count int, render func(feed.Snapshot[T]) string) error {
	defer sub.Close()

	ctx := cmd.Context()
	snapshots, errs := sub.Snapshots, sub.Errors
	shown := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-snapshots:
			if !ok {
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), render(s))
			shown++
			if count > 0 && shown >= count {
				return nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	}
}

func snapshotLine(seq uint64, app *App) string {
	return formatter.Dim(fmt.Sprintf("#%d  %s", seq, app.now().Format("15:04:05")))
}
