package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/driftsync/driftsync/internal/verify"
)

// File mirrors the optional TOML configuration file. Pointer fields
// distinguish "absent" from zero values; absent fields leave the defaults
// (or flag values) untouched.
type File struct {
	SourceRoot        *string `toml:"source_root"`
	DestRoot          *string `toml:"dest_root"`
	NumThreads        *int    `toml:"num_threads"`
	LogDir            *string `toml:"log_dir"`
	QueueCapacity     *int    `toml:"queue_capacity"`
	MaxRetries        *int    `toml:"max_retries"`
	ReconcileInterval *string `toml:"reconcile_interval"`
	RecoveryInterval  *string `toml:"recovery_interval"`
	RecoveryGrace     *string `toml:"recovery_grace"`
	RetryBackoff      *string `toml:"retry_backoff"`
	RotationSize      *int64  `toml:"rotation_size"`
	CompressArchives  *bool   `toml:"compress_archives"`
	CacheDBDir        *string `toml:"cache_db_dir"`
	VerifyMethod      *string `toml:"verify_method"`
}

// LoadFile reads the TOML file at path. A missing file is not an error; the
// configuration file is always optional.
func LoadFile(path string) (File, error) {
	var f File
	_, err := toml.DecodeFile(path, &f)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return f, nil
}

// Apply overlays the file's set fields onto c.
func (f File) Apply(c *Config) error {
	if f.SourceRoot != nil {
		c.SourceRoot = *f.SourceRoot
	}
	if f.DestRoot != nil {
		c.DestRoot = *f.DestRoot
	}
	if f.NumThreads != nil {
		c.NumThreads = *f.NumThreads
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.QueueCapacity != nil {
		c.QueueCapacity = *f.QueueCapacity
	}
	if f.MaxRetries != nil {
		c.MaxRetries = *f.MaxRetries
	}
	if err := applyDuration(f.ReconcileInterval, "reconcile_interval", &c.ReconcileInterval); err != nil {
		return err
	}
	if err := applyDuration(f.RecoveryInterval, "recovery_interval", &c.RecoveryInterval); err != nil {
		return err
	}
	if err := applyDuration(f.RecoveryGrace, "recovery_grace", &c.RecoveryGrace); err != nil {
		return err
	}
	if err := applyDuration(f.RetryBackoff, "retry_backoff", &c.RetryBackoff); err != nil {
		return err
	}
	if f.RotationSize != nil {
		c.RotationSize = *f.RotationSize
	}
	if f.CompressArchives != nil {
		c.CompressArchives = *f.CompressArchives
	}
	if f.CacheDBDir != nil {
		c.CacheDBDir = *f.CacheDBDir
	}
	if f.VerifyMethod != nil {
		m, err := verify.MethodFromString(*f.VerifyMethod)
		if err != nil {
			return err
		}
		c.VerifyMethod = m
	}
	return nil
}

func applyDuration(s *string, name string, dst *time.Duration) error {
	if s == nil {
		return nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*dst = d
	return nil
}
