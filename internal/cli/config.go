package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/tabtree/internal/logging"
	"github.com/mesh-intelligence/tabtree/internal/paths"
	"github.com/mesh-intelligence/tabtree/internal/server"
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
)

// Config keys.
const (
	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeySyncStrategy  = "sync_strategy"
	cfgKeyBatchSize     = "batch_size"
	cfgKeyBatchInterval = "batch_interval"
	cfgKeyRetries       = "restore.retries"
	cfgKeyRetryDelay    = "restore.retry_delay"
	cfgKeyCompact       = "positions.compact_subtree_removal"
	cfgKeyLogLevel      = "log.level"
	cfgKeyLogDev        = "log.development"
	cfgKeyServerAddr    = "server.addr"
	cfgKeyAllowOrigins  = "server.allow_origins"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# tabtree configuration

# Storage backend: sqlite or memory
backend: sqlite

# Data directory (optional; overridable by --data-dir)
# data_dir:

# When the sqlite backend rewrites its JSONL files: immediate, on_close or batch
sync_strategy: immediate
batch_size: 10
batch_interval: 5

restore:
  retries: 2
  retry_delay: 500ms

positions:
  compact_subtree_removal: true

log:
  level: info
  development: false

server:
  addr: 127.0.0.1:7420
  # allow_origins:
  #   - chrome-extension://<extension-id>
`

// settings is everything a command needs from config.yaml and the flags.
type settings struct {
	Store  types.Config
	Log    logging.Config
	Server server.Config
}

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. Unset keys take the built-in defaults.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	store := types.DefaultConfig()
	v.SetDefault(cfgKeyBackend, store.Backend)
	v.SetDefault(cfgKeySyncStrategy, store.SyncStrategy)
	v.SetDefault(cfgKeyBatchSize, store.BatchSize)
	v.SetDefault(cfgKeyBatchInterval, store.BatchInterval)
	v.SetDefault(cfgKeyRetries, store.RestoreRetries)
	v.SetDefault(cfgKeyRetryDelay, store.RestoreRetryDelay)
	v.SetDefault(cfgKeyCompact, store.CompactSubtreeRemoval)

	log := logging.DefaultConfig()
	v.SetDefault(cfgKeyLogLevel, log.Level)
	v.SetDefault(cfgKeyLogDev, log.Development)

	v.SetDefault(cfgKeyServerAddr, server.DefaultConfig().Addr)
}

// ensureDefaultConfigFile writes defaultConfigYAML unless config.yaml
// already exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// buildSettings turns the loaded config into typed settings. dataDirFlag
// wins over data_dir in the file.
func buildSettings(v *viper.Viper, dataDirFlag string) (settings, error) {
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}

	store := types.Config{
		Backend:               v.GetString(cfgKeyBackend),
		DataDir:               dataDir,
		SyncStrategy:          v.GetString(cfgKeySyncStrategy),
		BatchSize:             v.GetInt(cfgKeyBatchSize),
		BatchInterval:         v.GetInt(cfgKeyBatchInterval),
		RestoreRetries:        v.GetInt(cfgKeyRetries),
		RestoreRetryDelay:     v.GetDuration(cfgKeyRetryDelay),
		CompactSubtreeRemoval: v.GetBool(cfgKeyCompact),
	}
	if err := store.Validate(); err != nil {
		return settings{}, fmt.Errorf("invalid config: %w", err)
	}

	log := logging.DefaultConfig()
	log.Level = v.GetString(cfgKeyLogLevel)
	log.Development = v.GetBool(cfgKeyLogDev)
	if _, err := logging.ParseLevel(log.Level); err != nil {
		return settings{}, fmt.Errorf("invalid config: log.level: %w", err)
	}

	srv := server.DefaultConfig()
	srv.Addr = v.GetString(cfgKeyServerAddr)
	srv.Development = log.Development
	srv.AllowOrigins = v.GetStringSlice(cfgKeyAllowOrigins)

	return settings{Store: store, Log: log, Server: srv}, nil
}
