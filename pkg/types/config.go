package types

import (
	"errors"
	"time"
)

// Config holds backend selection and tracker parameters.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// SyncStrategy controls when the sqlite backend rewrites its JSONL files.
	SyncStrategy  string `json:"sync_strategy" yaml:"sync_strategy"`
	BatchSize     int    `json:"batch_size" yaml:"batch_size"`
	BatchInterval int    `json:"batch_interval" yaml:"batch_interval"` // seconds

	RestoreRetries        int           `json:"restore_retries" yaml:"restore_retries"`
	RestoreRetryDelay     time.Duration `json:"restore_retry_delay" yaml:"restore_retry_delay"`
	CompactSubtreeRemoval bool          `json:"compact_subtree_removal" yaml:"compact_subtree_removal"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Sync strategies for the sqlite backend.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
	SyncBatch     = "batch"
)

// Defaults applied by DefaultConfig.
const (
	DefaultRestoreRetries    = 2
	DefaultRestoreRetryDelay = 500 * time.Millisecond
	DefaultBatchSize         = 10
	DefaultBatchInterval     = 5
)

// Config validation errors.
var (
	ErrBackendEmpty         = errors.New("backend must not be empty")
	ErrBackendUnknown       = errors.New("unknown backend")
	ErrSyncStrategyUnknown  = errors.New("unknown sync strategy")
	ErrBatchSizeInvalid     = errors.New("batch size must be positive")
	ErrBatchIntervalInvalid = errors.New("batch interval must be positive")
	ErrRestoreRetries       = errors.New("restore retries must not be negative")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendMemory: true,
}

var knownSyncStrategies = map[string]bool{
	"":            true,
	SyncImmediate: true,
	SyncOnClose:   true,
	SyncBatch:     true,
}

// DefaultConfig returns a Config for the sqlite backend with the restore and
// sync defaults filled in.
func DefaultConfig() Config {
	return Config{
		Backend:               BackendSQLite,
		SyncStrategy:          SyncImmediate,
		BatchSize:             DefaultBatchSize,
		BatchInterval:         DefaultBatchInterval,
		RestoreRetries:        DefaultRestoreRetries,
		RestoreRetryDelay:     DefaultRestoreRetryDelay,
		CompactSubtreeRemoval: true,
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if !knownSyncStrategies[c.SyncStrategy] {
		return ErrSyncStrategyUnknown
	}
	if c.SyncStrategy == SyncBatch {
		if c.BatchSize <= 0 {
			return ErrBatchSizeInvalid
		}
		if c.BatchInterval <= 0 {
			return ErrBatchIntervalInvalid
		}
	}
	if c.RestoreRetries < 0 {
		return ErrRestoreRetries
	}
	return nil
}
