package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// CopyFile replicates src to dst, overwriting any existing destination. The
// data lands in a uniquely named temp file in dst's directory and is renamed
// into place, so a crash mid-copy never leaves a torn destination. The
// destination mtime is set to the source mtime afterwards; atime is not
// preserved.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", src)
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent dir %s: %w", dir, err)
	}

	base := filepath.Base(dst)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.drift-tmp", base, uuid.New().String()[:8]))
	defer os.Remove(tmpPath) // no-op once the rename succeeds

	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create tmp %s: %w", tmpPath, err)
	}

	in, err := os.Open(src)
	if err != nil {
		out.Close()
		return fmt.Errorf("open %s: %w", src, err)
	}

	buf := make([]byte, 32*1024)
	_, copyErr := io.CopyBuffer(out, in, buf)
	in.Close()
	if copyErr != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, copyErr)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close tmp %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpPath, dst, err)
	}

	times := []unix.Timespec{
		unix.NsecToTimespec(time.Now().UnixNano()),
		unix.NsecToTimespec(info.ModTime().UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, dst, times, 0); err != nil {
		return fmt.Errorf("set times %s: %w", dst, err)
	}

	return nil
}
