package recording

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/valter-silva-au/diagbus/pkg/models"
)

// ErrClosed is returned by Append after the writer has been closed.
var ErrClosed = errors.New("recording writer closed")

// Writer appends status records to a single output destination. Implementations
// must be safe for concurrent use.
type Writer interface {
	Append(rec models.StatusRecord) error
	Close() error
}

// Factory opens a Writer for the given path and compression mode.
type Factory func(path string, compress bool) (Writer, error)

// jsonlWriter implements Writer using an append-only JSONL file, optionally
// wrapped in a gzip member that is flushed after every record.
type jsonlWriter struct {
	path   string
	file   *os.File
	gz     *gzip.Writer
	out    io.Writer
	mu     sync.Mutex
	closed bool
}

// NewFileWriter opens (or creates) the recording at path for appending.
func NewFileWriter(path string, compress bool) (Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}

	w := &jsonlWriter{path: path, file: f, out: f}
	if compress {
		w.gz = gzip.NewWriter(f)
		w.out = w.gz
	}
	return w, nil
}

// Append encodes rec as one JSON line. Records reach the file in the order
// callers acquire the writer lock.
func (w *jsonlWriter) Append(rec models.StatusRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling record for channel %q: %w", rec.Channel, err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if _, err := w.out.Write(data); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if w.gz != nil {
		if err := w.gz.Flush(); err != nil {
			return fmt.Errorf("flushing compressed record: %w", err)
		}
	}
	return nil
}

// Close finishes the gzip member, if any, and closes the file. Closing twice
// is a no-op.
func (w *jsonlWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var gzErr error
	if w.gz != nil {
		gzErr = w.gz.Close()
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing recording: %w", err)
	}
	if gzErr != nil {
		return fmt.Errorf("finishing compressed recording: %w", gzErr)
	}
	return nil
}
