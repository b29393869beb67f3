// Package cli implements the tabtree command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabtree/internal/codec"
	"github.com/mesh-intelligence/tabtree/internal/logging"
	"github.com/mesh-intelligence/tabtree/internal/memstore"
	"github.com/mesh-intelligence/tabtree/internal/paths"
	"github.com/mesh-intelligence/tabtree/pkg/sqlite"
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the exit code for an error returned by a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// sysError marks err as an environment failure (exit code 2).
func sysError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitSysError, err: err}
}

// exitCode maps an error returned by Execute to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// app holds the global flag values and the loaded configuration for one
// command invocation.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool

	v *viper.Viper
}

// NewRootCmd creates the top-level "tabtree" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:     "tabtree",
		Short:   "Tree-style tab tracking for browser windows",
		Long:    "tabtree keeps a per-window tree of browser tabs, persists it, and\nrestores it when a window is reopened.",
		Version: Version,
		// Errors are printed once by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			configDir, err := paths.ResolveConfigDir(a.configDir)
			if err != nil {
				return sysError(fmt.Errorf("resolve config dir: %w", err))
			}
			v, err := loadConfig(configDir)
			if err != nil {
				return sysError(err)
			}
			a.v = v
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: per-user config dir)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: per-user data dir)")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newServeCmd(a),
		newTreeCmd(a),
		newWindowsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func (a *app) settings() (settings, error) {
	return buildSettings(a.v, a.dataDir)
}

// newBackend creates the backend named in cfg. It is not attached.
func newBackend(cfg types.Config, logger *zap.Logger) (types.Backend, error) {
	switch cfg.Backend {
	case types.BackendSQLite:
		return sqlite.NewBackend(logger), nil
	case types.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend)
	}
}

// attachBackend creates and attaches the configured backend. The caller
// must Detach it.
func attachBackend(s settings, logger *zap.Logger) (types.Backend, error) {
	backend, err := newBackend(s.Store, logger)
	if err != nil {
		return nil, err
	}
	if err := backend.Attach(s.Store); err != nil {
		return nil, sysError(fmt.Errorf("attach backend: %w", err))
	}
	return backend, nil
}

// withBackend runs fn against the attached backend and detaches it
// afterwards. Commands other than serve log at warn level to stderr.
func (a *app) withBackend(fn func(s settings, backend types.Backend) error) error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	logCfg := s.Log
	logCfg.Level = "warn"
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	backend, err := attachBackend(s, logger)
	if err != nil {
		return err
	}
	runErr := fn(s, backend)
	if err := backend.Detach(); err != nil && runErr == nil {
		return sysError(fmt.Errorf("detach backend: %w", err))
	}
	return runErr
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := codec.Marshal(codec.FormatJSON, v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
