package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsync/driftsync/internal/verify"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, "/var/log/file_sync", c.LogDir)
	assert.Equal(t, 10000, c.QueueCapacity)
	assert.Equal(t, 3, c.MaxRetries)
	assert.Equal(t, 6*time.Hour, c.ReconcileInterval)
	assert.Equal(t, time.Minute, c.RecoveryInterval)
	assert.Equal(t, 5*time.Minute, c.RecoveryGrace)
	assert.Equal(t, 5*time.Second, c.RetryBackoff)
	assert.Equal(t, int64(10*1024*1024), c.RotationSize)
	assert.Equal(t, verify.FastHash, c.VerifyMethod)
	assert.GreaterOrEqual(t, c.NumThreads, 1)
}

func TestValidate(t *testing.T) {
	c := Default()
	assert.Error(t, c.Validate(), "roots are required")

	c.SourceRoot = "/src"
	assert.Error(t, c.Validate())

	c.DestRoot = "/dst"
	assert.NoError(t, c.Validate())

	c.DestRoot = "/src"
	assert.Error(t, c.Validate(), "identical roots rejected")

	c.DestRoot = "/dst"
	c.NumThreads = 0
	assert.Error(t, c.Validate())
}

func TestLoadFile_MissingIsNotAnError(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Nil(t, f.SourceRoot)
}

func TestLoadFile_AppliesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driftsync.toml")
	content := `
source_root = "/data/src"
dest_root = "/data/dst"
num_threads = 7
reconcile_interval = "30m"
compress_archives = true
verify_method = "strong-hash"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)

	c := Default()
	require.NoError(t, f.Apply(&c))

	assert.Equal(t, "/data/src", c.SourceRoot)
	assert.Equal(t, "/data/dst", c.DestRoot)
	assert.Equal(t, 7, c.NumThreads)
	assert.Equal(t, 30*time.Minute, c.ReconcileInterval)
	assert.True(t, c.CompressArchives)
	assert.Equal(t, verify.StrongHash, c.VerifyMethod)
	// Untouched fields keep their defaults.
	assert.Equal(t, 10000, c.QueueCapacity)
}

func TestApply_BadDuration(t *testing.T) {
	bad := "nonsense"
	f := File{RecoveryGrace: &bad}
	c := Default()
	assert.Error(t, f.Apply(&c))
}

func TestApply_BadVerifyMethod(t *testing.T) {
	bad := "sha1"
	f := File{VerifyMethod: &bad}
	c := Default()
	assert.Error(t, f.Apply(&c))
}
