package eventlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the log file created inside the log directory.
const FileName = "events.jsonl"

// Appender accepts events for durable storage.
type Appender interface {
	Append(evt Event) error
}

// Log appends events to a JSONL file. Each event is encoded into a single
// buffer and written with one call on an O_APPEND descriptor, so concurrent
// appends never interleave partial records.
type Log struct {
	mu   sync.Mutex
	file *os.File
	path string
	now  func() time.Time
}

// Open creates dir if needed and opens (or creates) the events file inside it.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &Log{file: f, path: path, now: time.Now}, nil
}

// Path returns the location of the events file.
func (l *Log) Path() string {
	return l.path
}

// Append writes evt as one line, assigning ts when the caller left it unset.
func (l *Log) Append(evt Event) error {
	if evt.TS == nil {
		ts := float64(l.now().UnixNano()) / float64(time.Second)
		evt.TS = &ts
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(evt); err != nil { // Encode terminates the record with '\n'
		return fmt.Errorf("encode event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return errors.New("event log closed")
	}
	if _, err := l.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Scan reads the events file at path and calls fn for every decodable record.
// Blank, malformed and trailing partial lines are skipped. A missing file is
// an empty log. The scan reads whatever is present while it runs and never
// blocks writers.
func Scan(ctx context.Context, path string, fn func(Event)) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, readErr := r.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			var evt Event
			if err := json.Unmarshal(line, &evt); err == nil {
				fn(evt)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read event log: %w", readErr)
		}
	}
}
