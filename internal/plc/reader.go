// Package plc reads raw DB blocks, either from a live S7 CPU or from dump
// files, and polls them on an interval.
package plc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// BlockReader returns the first size bytes of data block db.
type BlockReader interface {
	ReadBlock(ctx context.Context, db int, size int) ([]byte, error)
}

// DumpReader serves blocks from db<N>.bin files in a directory. A file
// shorter than the requested size is returned as is.
type DumpReader struct {
	dir string
}

func NewDumpReader(dir string) *DumpReader {
	return &DumpReader{dir: dir}
}

func DumpFileName(db int) string {
	return fmt.Sprintf("db%d.bin", db)
}

func (r *DumpReader) ReadBlock(ctx context.Context, db int, size int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(r.dir, DumpFileName(db))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump for DB%d: %w", db, err)
	}

	if size > 0 && len(data) > size {
		data = data[:size]
	}
	return data, nil
}

// WriteDump stores buf as the dump file for db.
func WriteDump(dir string, db int, buf []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dump dir: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, DumpFileName(db)), buf, 0o644)
}
