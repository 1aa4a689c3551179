// Package logfile keeps the launcher's own diagnostic log bounded across runs.
package logfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Truncate shrinks the file at path to its last keepSize bytes, prefixed by
// a one-line notice, once it has grown past maxSize. A missing file is left
// alone.
func Truncate(path string, maxSize, keepSize int64) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file for truncation: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	size := info.Size()
	if size <= maxSize {
		return nil
	}

	keep := min(max(keepSize, 0), size)
	tail := make([]byte, keep)
	if _, err := f.ReadAt(tail, size-keep); err != nil {
		return fmt.Errorf("read log file tail: %w", err)
	}

	notice := fmt.Sprintf("=== Log truncated (was %d bytes, keeping last %d bytes) ===\n", size, keep)
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate log file: %w", err)
	}
	if _, err := f.WriteAt(append([]byte(notice), tail...), 0); err != nil {
		return fmt.Errorf("write log tail: %w", err)
	}
	return nil
}
