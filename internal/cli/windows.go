package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tabtree/internal/tracker"
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

func newWindowsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "List stored windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(func(_ settings, backend types.Backend) error {
				state, err := backend.Load(cmd.Context())
				if err != nil {
					return sysError(fmt.Errorf("load state: %w", err))
				}

				summaries := make([]tracker.WindowSummary, 0, len(state.Windows))
				for _, id := range state.WindowIDs() {
					w := state.Windows[id]
					summaries = append(summaries, tracker.WindowSummary{ID: id, Tabs: w.Len(), Closed: w.Closed})
				}

				out := cmd.OutOrStdout()
				if a.jsonMode {
					return printJSON(out, summaries)
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "WINDOW\tTABS\tSTATE")
				for _, ws := range summaries {
					status := "open"
					if ws.Closed {
						status = "closed"
					}
					fmt.Fprintf(tw, "%d\t%d\t%s\n", ws.ID, ws.Tabs, status)
				}
				return tw.Flush()
			})
		},
	}
}
