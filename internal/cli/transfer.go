package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tabtree/internal/codec"
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// formatFor picks the codec format from the --format flag, falling back to
// the file extension and then JSON.
func formatFor(flag, path string) (codec.Format, error) {
	if flag != "" {
		return codec.ParseFormat(flag)
	}
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return codec.FormatCBOR, nil
	}
	return codec.FormatJSON, nil
}

func newExportCmd(a *app) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored state as JSON or CBOR",
		Example: `  tabtree export > tabs.json
  tabtree export --out tabs.cbor`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatFor(format, out)
			if err != nil {
				return err
			}
			return a.withBackend(func(_ settings, backend types.Backend) error {
				state, err := backend.Load(cmd.Context())
				if err != nil {
					return sysError(fmt.Errorf("load state: %w", err))
				}
				if out == "" || out == "-" {
					return codec.WriteState(cmd.OutOrStdout(), f, state)
				}

				file, err := os.Create(out)
				if err != nil {
					return sysError(err)
				}
				if err := codec.WriteState(file, f, state); err != nil {
					file.Close()
					return sysError(err)
				}
				return sysError(file.Close())
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or cbor (default: from --out extension, else json)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored state with an exported snapshot",
		Long: `Import reads a JSON or CBOR snapshot written by export and replaces the
stored state with it. Windows whose links disagree are repaired on the way in.
Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := formatFor(format, path)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if path != "-" {
				file, err := os.Open(path)
				if err != nil {
					return err
				}
				defer file.Close()
				r = file
			}
			state, err := codec.ReadState(r, f)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			return a.withBackend(func(_ settings, backend types.Backend) error {
				if err := backend.Save(cmd.Context(), state); err != nil {
					return sysError(fmt.Errorf("save state: %w", err))
				}
				counts := struct {
					Windows int `json:"windows"`
					Tabs    int `json:"tabs"`
				}{len(state.Windows), state.TabCount()}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), counts)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d windows, %d tabs\n", counts.Windows, counts.Tabs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or cbor (default: from file extension, else json)")
	return cmd
}
