package txlog

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/pgzip"
)

// compressArchive rewrites path as path.gz and removes the original. The
// original is kept if anything fails partway.
func compressArchive(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer in.Close()

	gzPath := path + ".gz"
	out, err := os.OpenFile(gzPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", gzPath, err)
	}

	zw := pgzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		os.Remove(gzPath)
		return fmt.Errorf("compress %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(gzPath)
		return fmt.Errorf("finish %s: %w", gzPath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(gzPath)
		return fmt.Errorf("close %s: %w", gzPath, err)
	}

	return os.Remove(path)
}
