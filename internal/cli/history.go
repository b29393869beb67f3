package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tabtree/internal/sqlite"
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// historian is implemented by backends that record save snapshots.
type historian interface {
	History(ctx context.Context, limit int) ([]sqlite.Snapshot, error)
}

var errNoHistory = errors.New("history requires the sqlite backend")

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent saves, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(func(_ settings, backend types.Backend) error {
				h, ok := backend.(historian)
				if !ok {
					return errNoHistory
				}
				snapshots, err := h.History(cmd.Context(), limit)
				if err != nil {
					return sysError(err)
				}

				out := cmd.OutOrStdout()
				if a.jsonMode {
					return printJSON(out, snapshots)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "REVISION\tSAVED\tWINDOWS\tTABS")
				for _, s := range snapshots {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", s.Revision, s.SavedAt.Local().Format(time.DateTime), s.Windows, s.Tabs)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of saves to show")
	return cmd
}
