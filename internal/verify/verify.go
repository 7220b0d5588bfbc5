// Package verify decides whether a destination file faithfully mirrors its
// source. Methods range from a size check to a byte-for-byte compare; hash
// methods consult a fingerprint cache keyed by (path, size, mtime).
package verify

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"time"

	"github.com/zeebo/blake3"
)

// Method selects how strictly two files are compared.
type Method int

const (
	// SizeOnly matches when file sizes are equal.
	SizeOnly Method = iota
	// Timestamp matches when mtimes agree within one second.
	Timestamp
	// FastHash compares MD5 digests. Not a security primitive; it is the
	// default because it is cheap and collisions do not occur by accident.
	FastHash
	// StrongHash compares SHA-256 digests.
	StrongHash
	// Blake3Hash compares BLAKE3 digests.
	Blake3Hash
	// FullCompare streams both files block by block and stops at the first
	// difference; the offset of that difference is not reported.
	FullCompare
)

var methodNames = [...]string{
	SizeOnly:    "size-only",
	Timestamp:   "timestamp",
	FastHash:    "fast-hash",
	StrongHash:  "strong-hash",
	Blake3Hash:  "blake3",
	FullCompare: "full-compare",
}

func (m Method) String() string {
	if m >= 0 && int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// MethodFromString parses the configuration spelling of a method.
func MethodFromString(s string) (Method, error) {
	for i, name := range methodNames {
		if s == name {
			return Method(i), nil
		}
	}
	return FastHash, fmt.Errorf("unknown verify method %q", s)
}

// blockSize is the unit for all file reads.
const blockSize = 8 * 1024

// mtimeTolerance is the slack allowed by the Timestamp method.
const mtimeTolerance = time.Second

// Result is the outcome of a single file verification.
type Result struct {
	Matches      bool
	SourceHash   string
	DestHash     string
	ErrorMessage string
	Duration     time.Duration
}

// Verifier compares source/destination pairs. It is safe for concurrent use.
type Verifier struct {
	cache *hashCache
	db    *CacheDB // optional persistent fingerprint store
}

// New returns a Verifier with an in-memory fingerprint cache.
func New() *Verifier {
	return &Verifier{cache: newHashCache()}
}

// NewWithCacheDB returns a Verifier that additionally consults and populates
// the given persistent cache. The db's lifetime belongs to the caller.
func NewWithCacheDB(db *CacheDB) *Verifier {
	v := New()
	v.db = db
	return v
}

// File verifies that dst mirrors src under the given method.
func (v *Verifier) File(src, dst string, method Method) Result {
	start := time.Now()
	finish := func(r Result) Result {
		r.Duration = time.Since(start)
		return r
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return finish(Result{ErrorMessage: "Source file does not exist"})
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return finish(Result{ErrorMessage: "Destination file does not exist"})
	}

	// Size inequality is an immediate mismatch regardless of method.
	if srcInfo.Size() != dstInfo.Size() {
		return finish(Result{ErrorMessage: "File sizes don't match"})
	}

	switch method {
	case SizeOnly:
		return finish(Result{Matches: true})

	case Timestamp:
		diff := srcInfo.ModTime().Sub(dstInfo.ModTime())
		if diff < 0 {
			diff = -diff
		}
		if diff > mtimeTolerance {
			return finish(Result{ErrorMessage: "Timestamps don't match within threshold"})
		}
		return finish(Result{Matches: true})

	case FastHash, StrongHash, Blake3Hash:
		srcHash, err := v.hashFile(src, srcInfo, method)
		if err != nil {
			return finish(Result{ErrorMessage: err.Error()})
		}
		dstHash, err := v.hashFile(dst, dstInfo, method)
		if err != nil {
			return finish(Result{SourceHash: srcHash, ErrorMessage: err.Error()})
		}
		r := Result{SourceHash: srcHash, DestHash: dstHash, Matches: srcHash == dstHash}
		if !r.Matches {
			r.ErrorMessage = hashMismatchMessage(method)
		}
		return finish(r)

	case FullCompare:
		equal, err := compareContent(src, dst)
		if err != nil {
			return finish(Result{ErrorMessage: err.Error()})
		}
		r := Result{Matches: equal}
		if !equal {
			r.ErrorMessage = "File contents don't match"
		}
		return finish(r)
	}

	return finish(Result{ErrorMessage: fmt.Sprintf("unknown verify method %d", method)})
}

func hashMismatchMessage(method Method) string {
	switch method {
	case StrongHash:
		return "SHA-256 checksums don't match"
	case Blake3Hash:
		return "BLAKE3 checksums don't match"
	default:
		return "MD5 checksums don't match"
	}
}

// hashFile returns the hex digest for path, consulting the fingerprint
// caches before reading the file.
func (v *Verifier) hashFile(path string, info os.FileInfo, method Method) (string, error) {
	key := cacheKey(path, method)
	size := info.Size()
	mtime := info.ModTime()

	if h, ok := v.cache.lookup(key, size, mtime); ok {
		return h, nil
	}
	if v.db != nil {
		if h, ok := v.db.Lookup(path, method.String(), size, mtime.UnixNano()); ok {
			v.cache.store(key, h, size, mtime)
			return h, nil
		}
	}

	h, err := digestFile(path, method)
	if err != nil {
		return "", err
	}

	v.cache.store(key, h, size, mtime)
	if v.db != nil {
		_ = v.db.Store(path, method.String(), size, h, mtime.UnixNano())
	}
	return h, nil
}

func digestFile(path string, method Method) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var h hash.Hash
	switch method {
	case StrongHash:
		h = sha256.New()
	case Blake3Hash:
		h = blake3.New()
	default:
		h = md5.New()
	}

	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// compareContent streams both files in fixed-size blocks and reports
// whether they are byte-identical.
func compareContent(src, dst string) (bool, error) {
	sf, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", src, err)
	}
	defer sf.Close()

	df, err := os.Open(dst)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", dst, err)
	}
	defer df.Close()

	sbuf := make([]byte, blockSize)
	dbuf := make([]byte, blockSize)
	for {
		sn, serr := io.ReadFull(sf, sbuf)
		dn, derr := io.ReadFull(df, dbuf)

		if sn != dn || !bytes.Equal(sbuf[:sn], dbuf[:dn]) {
			return false, nil
		}

		sEOF := serr == io.EOF || serr == io.ErrUnexpectedEOF
		dEOF := derr == io.EOF || derr == io.ErrUnexpectedEOF
		if serr != nil && !sEOF {
			return false, fmt.Errorf("read %s: %w", src, serr)
		}
		if derr != nil && !dEOF {
			return false, fmt.Errorf("read %s: %w", dst, derr)
		}
		if sEOF || dEOF {
			return sEOF == dEOF, nil
		}
	}
}
