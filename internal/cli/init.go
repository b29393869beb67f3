package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tabtree/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize tabtree storage",
		Long:  "Create the configuration and data directories, then initialize the storage backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(func(s settings, _ types.Backend) error {
				fmt.Fprintf(cmd.OutOrStdout(), "tabtree initialized (%s backend, data in %s)\n", s.Store.Backend, s.Store.DataDir)
				return nil
			})
		},
	}
}
