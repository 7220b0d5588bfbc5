package verify

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// PathResult pairs a path relative to the source root with its verification
// outcome.
type PathResult struct {
	Rel    string
	Result Result
}

// Messages used for tree-level mismatches.
const (
	msgMissingInDest = "File missing in destination"
	msgExtraInDest   = "Extra file in destination"
)

type filePair struct {
	rel string
	src string
	dst string
}

// Directory walks the source tree and verifies every regular file against
// its counterpart under dstDir, then walks the destination to flag extra
// files. With parallel set, pairs are verified by maxThreads workers; pair i
// is assigned to worker i%maxThreads so no shared cursor is needed.
func (v *Verifier) Directory(srcDir, dstDir string, method Method, parallel bool, maxThreads int) []PathResult {
	if info, err := os.Stat(srcDir); err != nil || !info.IsDir() {
		return []PathResult{{Result: Result{ErrorMessage: "Source directory does not exist or is not a directory"}}}
	}
	if info, err := os.Stat(dstDir); err != nil || !info.IsDir() {
		return []PathResult{{Result: Result{ErrorMessage: "Destination directory does not exist or is not a directory"}}}
	}

	var results []PathResult
	var pairs []filePair

	// Pair every source file with its destination; missing counterparts are
	// reported immediately.
	_ = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return nil
		}
		dstPath := filepath.Join(dstDir, rel)
		if info, err := os.Stat(dstPath); err != nil || !info.Mode().IsRegular() {
			results = append(results, PathResult{Rel: rel, Result: Result{ErrorMessage: msgMissingInDest}})
			return nil
		}
		pairs = append(pairs, filePair{rel: rel, src: path, dst: dstPath})
		return nil
	})

	// Anything in the destination without a source counterpart is drift.
	_ = filepath.WalkDir(dstDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dstDir, path)
		if err != nil {
			return nil
		}
		srcPath := filepath.Join(srcDir, rel)
		if info, err := os.Stat(srcPath); err != nil || !info.Mode().IsRegular() {
			results = append(results, PathResult{Rel: rel, Result: Result{ErrorMessage: msgExtraInDest}})
		}
		return nil
	})

	if len(pairs) == 0 {
		return results
	}

	if !parallel || len(pairs) == 1 || maxThreads <= 1 {
		for _, p := range pairs {
			results = append(results, PathResult{Rel: p.rel, Result: v.File(p.src, p.dst, method)})
		}
		return results
	}

	workers := maxThreads
	if workers > len(pairs) {
		workers = len(pairs)
	}

	var mu sync.Mutex
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := w; i < len(pairs); i += workers {
				p := pairs[i]
				r := v.File(p.src, p.dst, method)
				mu.Lock()
				results = append(results, PathResult{Rel: p.rel, Result: r})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
