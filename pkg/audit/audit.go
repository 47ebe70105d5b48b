// Package audit appends records to a JSON-lines file and reads them back.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrEmptyPath indicates a Log was created without a file path.
var ErrEmptyPath = errors.New("audit log path required")

const maxLine = 16 << 20

// Log appends one JSON document per line. Appends are serialized so
// concurrent writers never interleave partial lines.
type Log struct {
	mu   sync.Mutex
	path string
}

// New returns a Log writing to path. The file and its directory are created
// on first append.
func New(path string) (*Log, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	return &Log{path: path}, nil
}

// Path returns the file the log writes to.
func (l *Log) Path() string {
	return l.path
}

// Append writes v as a single line.
func (l *Log) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create audit directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write audit record: %w", err)
	}

	return f.Close()
}

// Read decodes every non-blank line of r into T, in file order.
func Read[T any](r io.Reader) ([]T, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	var records []T
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return records, fmt.Errorf("decode audit line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return records, scanner.Err()
}

// ReadFile reads all records from the file at path.
func ReadFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read[T](f)
}
