package verify

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultFor(results []PathResult, rel string) (Result, bool) {
	for _, r := range results {
		if r.Rel == rel {
			return r.Result, true
		}
	}
	return Result{}, false
}

func TestDirectory_AllMatching(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	for _, root := range []string{src, dst} {
		writeFile(t, root, "a.txt", "alpha")
		writeFile(t, root, "sub/b.txt", "beta")
	}

	results := New().Directory(src, dst, FastHash, false, 1)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Result.Matches, "path %s: %s", r.Rel, r.Result.ErrorMessage)
	}
}

func TestDirectory_DetectsMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "a.txt", "v1")
	writeFile(t, dst, "a.txt", "v0")

	results := New().Directory(src, dst, FastHash, false, 1)
	r, ok := resultFor(results, "a.txt")
	require.True(t, ok)
	assert.False(t, r.Matches)
}

func TestDirectory_MissingInDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "only-in-src.txt", "x")
	require.NoError(t, os.MkdirAll(dst, 0o755))

	results := New().Directory(src, dst, FastHash, false, 1)
	r, ok := resultFor(results, "only-in-src.txt")
	require.True(t, ok)
	assert.False(t, r.Matches)
	assert.Equal(t, "File missing in destination", r.ErrorMessage)
}

func TestDirectory_ExtraInDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.MkdirAll(src, 0o755))
	writeFile(t, dst, "stray.txt", "x")

	results := New().Directory(src, dst, FastHash, false, 1)
	r, ok := resultFor(results, "stray.txt")
	require.True(t, ok)
	assert.False(t, r.Matches)
	assert.Equal(t, "Extra file in destination", r.ErrorMessage)
}

func TestDirectory_MissingRoots(t *testing.T) {
	dir := t.TempDir()

	results := New().Directory(filepath.Join(dir, "absent"), dir, FastHash, false, 1)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Rel)
	assert.Contains(t, results[0].Result.ErrorMessage, "Source directory")

	results = New().Directory(dir, filepath.Join(dir, "absent"), FastHash, false, 1)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Result.ErrorMessage, "Destination directory")
}

func TestDirectory_ParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("f%02d.txt", i)
		content := fmt.Sprintf("content-%d", i)
		writeFile(t, src, name, content)
		if i%7 == 0 {
			content = "drifted"
		}
		writeFile(t, dst, name, content)
	}

	seq := New().Directory(src, dst, FastHash, false, 1)
	par := New().Directory(src, dst, FastHash, true, 4)
	require.Equal(t, len(seq), len(par))

	for _, s := range seq {
		p, ok := resultFor(par, s.Rel)
		require.True(t, ok, "missing %s in parallel results", s.Rel)
		assert.Equal(t, s.Result.Matches, p.Matches, "path %s", s.Rel)
	}
}
