package table

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer writes comma-delimited rows behind a header.
type Writer struct {
	w      *bufio.Writer
	file   *os.File
	ncols  int
	closed bool
}

// Create creates a comma-delimited table at path, creating parent directories.
func Create(path string, header []string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create table directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	w := &Writer{w: bufio.NewWriter(f), file: f, ncols: len(header)}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Write writes one row.
func (w *Writer) Write(fields []string) error {
	if len(fields) != w.ncols {
		return fmt.Errorf("row has %d fields, header has %d", len(fields), w.ncols)
	}
	_, err := w.w.WriteString(strings.Join(fields, ",") + "\n")
	return err
}

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.w.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush table: %w", err)
	}
	return w.file.Close()
}
