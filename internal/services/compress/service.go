// Package compress archives finished dump files.
package compress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// Service defines the interface for dump compression.
type Service interface {
	Compress(srcPath, dstPath string) error
}

// ZipCompressor writes a single-entry zip archive next to the dump.
type ZipCompressor struct {
	level int
}

// New creates a zip compressor using the best compression level.
func New() *ZipCompressor {
	return &ZipCompressor{level: flate.BestCompression}
}

// NewWithLevel creates a zip compressor with a custom deflate level.
func NewWithLevel(level int) *ZipCompressor {
	return &ZipCompressor{level: level}
}

// Compress stores srcPath as the only entry of a zip archive at dstPath. A
// partially written archive is removed on failure.
func (c *ZipCompressor) Compress(srcPath, dstPath string) (err error) {
	src, err := os.Open(srcPath) //nolint:gosec // path is built by the dump command builder
	if err != nil {
		return fmt.Errorf("opening dump: %w", err)
	}
	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("reading dump info: %w", err)
	}

	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) //nolint:gosec // see above
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing archive: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(dstPath)
		}
	}()

	zw := zip.NewWriter(dst)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, c.level)
	})

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("building archive header: %w", err)
	}
	header.Name = filepath.Base(srcPath)
	header.Method = zip.Deflate

	entry, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("creating archive entry: %w", err)
	}

	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("compressing dump: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}

	return nil
}
