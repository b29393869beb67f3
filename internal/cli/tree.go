package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tabtree/internal/render"
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// windowTreeJSON is the --json form of one rendered window.
type windowTreeJSON struct {
	WindowID types.WindowID   `json:"window_id"`
	Closed   bool             `json:"closed"`
	Tree     []types.TreeView `json:"tree"`
}

func newTreeCmd(a *app) *cobra.Command {
	var opts render.Options
	cmd := &cobra.Command{
		Use:   "tree [window-id]",
		Short: "Show the stored tab tree",
		Long: `Tree prints the visible tab tree of one window, or of every stored window.
Children of collapsed tabs are hidden and counted next to their parent.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(func(_ settings, backend types.Backend) error {
				state, err := backend.Load(cmd.Context())
				if err != nil {
					return sysError(fmt.Errorf("load state: %w", err))
				}

				ids := state.WindowIDs()
				if len(args) == 1 {
					id, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("invalid window id %q", args[0])
					}
					if _, ok := state.Window(types.WindowID(id)); !ok {
						return fmt.Errorf("window %d not found", id)
					}
					ids = []types.WindowID{types.WindowID(id)}
				}

				out := cmd.OutOrStdout()
				if a.jsonMode {
					trees := make([]windowTreeJSON, 0, len(ids))
					for _, id := range ids {
						w := state.Windows[id]
						trees = append(trees, windowTreeJSON{WindowID: id, Closed: w.Closed, Tree: w.View()})
					}
					return printJSON(out, trees)
				}

				if len(ids) == 0 {
					fmt.Fprintln(out, "no windows")
					return nil
				}
				for i, id := range ids {
					if i > 0 {
						fmt.Fprintln(out)
					}
					if err := render.Tree(out, state.Windows[id], opts); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&opts.Width, "width", 0, "truncate lines to this many columns")
	cmd.Flags().BoolVar(&opts.ShowURL, "urls", false, "show URLs next to titles")
	return cmd
}
