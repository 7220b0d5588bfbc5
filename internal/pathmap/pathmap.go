// Package pathmap translates source paths into their mirror destinations.
package pathmap

import (
	"path/filepath"
	"strings"
)

// Mapper maps a source path to the destination path it replicates to.
type Mapper interface {
	Map(sourcePath string) string
}

// PrefixMapper replaces the source root prefix with the destination root.
// Paths outside the source root land in the destination root under their
// basename.
type PrefixMapper struct {
	SourceRoot string
	DestRoot   string
}

func (m PrefixMapper) Map(sourcePath string) string {
	root := filepath.Clean(m.SourceRoot)
	cleaned := filepath.Clean(sourcePath)

	if cleaned == root {
		return filepath.Clean(m.DestRoot)
	}
	prefix := root + string(filepath.Separator)
	if strings.HasPrefix(cleaned, prefix) {
		return filepath.Join(m.DestRoot, strings.TrimPrefix(cleaned, prefix))
	}
	return filepath.Join(m.DestRoot, filepath.Base(cleaned))
}

var _ Mapper = PrefixMapper{}

// Func adapts a plain function to the Mapper interface.
type Func func(sourcePath string) string

func (f Func) Map(sourcePath string) string { return f(sourcePath) }
