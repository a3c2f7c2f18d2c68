// Package table reads and writes the flat delimited text tables exchanged
// with the external pipeline stages: SNP facts, genotype inputs, numeric
// matrices, coefficient tables and selection-frequency tables.
package table

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Reader reads rows from a comma- or tab-delimited file with a header row.
type Reader struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	path       string
	lineNumber int
	delim      string
	header     []string
	columns    map[string]int
}

// Open opens a delimited table. Gzipped files are detected by magic bytes.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}

	r := &Reader{file: file, path: path}

	buf := make([]byte, 2)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read table header: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek table: %w", err)
	}

	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		r.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.reader = bufio.NewReader(r.gzipReader)
	} else {
		r.reader = bufio.NewReader(file)
	}

	if err := r.parseHeader(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// NewReader creates a table reader from an io.Reader.
func NewReader(rd io.Reader, name string) (*Reader, error) {
	r := &Reader{reader: bufio.NewReader(rd), path: name}
	if err := r.parseHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) parseHeader() error {
	line, err := r.readLine()
	if err != nil {
		if err == io.EOF {
			return &ParseError{Path: r.path, Line: r.lineNumber, Message: "missing header row"}
		}
		return fmt.Errorf("read header: %w", err)
	}

	r.delim = ","
	if strings.Contains(line, "\t") {
		r.delim = "\t"
	}
	r.header = strings.Split(line, r.delim)
	r.columns = make(map[string]int, len(r.header))
	for i, h := range r.header {
		h = strings.TrimSpace(h)
		r.header[i] = h
		r.columns[h] = i
	}
	return nil
}

// readLine returns the next non-empty line without its terminator.
func (r *Reader) readLine() (string, error) {
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		r.lineNumber++
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			return line, nil
		}
		if err == io.EOF {
			return "", io.EOF
		}
	}
}

// Header returns the header fields.
func (r *Reader) Header() []string { return r.header }

// Index returns the position of a header column.
func (r *Reader) Index(name string) (int, bool) {
	i, ok := r.columns[name]
	return i, ok
}

// Require returns the positions of the named columns, or a ParseError naming
// the first one that is absent.
func (r *Reader) Require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for k, name := range names {
		i, ok := r.columns[name]
		if !ok {
			return nil, &ParseError{Path: r.path, Line: 1, Message: fmt.Sprintf("missing column %q", name)}
		}
		idx[k] = i
	}
	return idx, nil
}

// Next reads the next row. Returns nil, nil when there are no more rows.
func (r *Reader) Next() ([]string, error) {
	line, err := r.readLine()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read row: %w", err)
	}

	fields := strings.Split(line, r.delim)
	if len(fields) != len(r.header) {
		return nil, r.errorf("expected %d columns, found %d", len(r.header), len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}

// LineNumber returns the current line number being processed.
func (r *Reader) LineNumber() int { return r.lineNumber }

// Close closes the reader and underlying file.
func (r *Reader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func (r *Reader) errorf(format string, args ...any) error {
	return &ParseError{Path: r.path, Line: r.lineNumber, Message: fmt.Sprintf(format, args...)}
}

// wrapf is errorf with an underlying error reachable through errors.Is.
func (r *Reader) wrapf(err error, format string, args ...any) error {
	return &ParseError{Path: r.path, Line: r.lineNumber, Message: fmt.Sprintf(format, args...), Err: err}
}

// ParseError represents an error during table parsing with line context.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error // optional cause
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: parse error at line %d: %s: %v", e.Path, e.Line, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: parse error at line %d: %s", e.Path, e.Line, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }
