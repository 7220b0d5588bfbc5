// Package config holds the engine's immutable runtime configuration.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/driftsync/driftsync/internal/verify"
)

// Config is fixed at engine construction and shared by reference.
type Config struct {
	// SourceRoot is the authoritative tree. Required.
	SourceRoot string
	// DestRoot is the mirror tree. Required.
	DestRoot string

	// NumThreads is the worker-pool size.
	NumThreads int
	// LogDir holds the transaction log and its archive.
	LogDir string
	// QueueCapacity bounds the priority queue.
	QueueCapacity int
	// MaxRetries caps re-attempts for a failing task.
	MaxRetries int

	// ReconcileInterval is the period between full-tree checks.
	ReconcileInterval time.Duration
	// RecoveryInterval is the period between log recovery scans.
	RecoveryInterval time.Duration
	// RecoveryGrace is how old a pending transaction must be before the
	// recovery worker considers it orphaned.
	RecoveryGrace time.Duration
	// RetryBackoff is the pause before a failed task is requeued.
	RetryBackoff time.Duration
	// EnqueueTimeout bounds how long producers wait on a full queue.
	EnqueueTimeout time.Duration
	// DequeuePoll bounds each worker wait for a task.
	DequeuePoll time.Duration

	// RotationSize is the transaction-log rotation threshold in bytes.
	RotationSize int64
	// CompressArchives gzip-compresses rotated logs.
	CompressArchives bool
	// CacheDBDir, when set, enables the persistent fingerprint cache.
	CacheDBDir string

	// VerifyMethod is used for post-copy verification and reconciliation.
	VerifyMethod verify.Method
}

// Default returns the documented defaults. SourceRoot and DestRoot have no
// default and must be supplied.
func Default() Config {
	return Config{
		NumThreads:        runtime.NumCPU(),
		LogDir:            "/var/log/file_sync",
		QueueCapacity:     10000,
		MaxRetries:        3,
		ReconcileInterval: 6 * time.Hour,
		RecoveryInterval:  time.Minute,
		RecoveryGrace:     5 * time.Minute,
		RetryBackoff:      5 * time.Second,
		EnqueueTimeout:    time.Second,
		DequeuePoll:       100 * time.Millisecond,
		RotationSize:      10 * 1024 * 1024,
		VerifyMethod:      verify.FastHash,
	}
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	if c.SourceRoot == "" {
		return errors.New("source root is required")
	}
	if c.DestRoot == "" {
		return errors.New("destination root is required")
	}
	if c.SourceRoot == c.DestRoot {
		return errors.New("source and destination roots must differ")
	}
	if c.NumThreads < 1 {
		return fmt.Errorf("num_threads must be >= 1, got %d", c.NumThreads)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be >= 1, got %d", c.QueueCapacity)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.LogDir == "" {
		return errors.New("log_dir is required")
	}
	return nil
}
