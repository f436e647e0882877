package recording

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/valter-silva-au/diagbus/pkg/models"
)

// maxLineSize bounds a single encoded record. Longer lines are skipped.
const maxLineSize = 16 * 1024 * 1024

var (
	// gzipMagic opens every compressed segment. It cannot occur in plain
	// JSON lines because control characters are always escaped.
	gzipMagic = []byte{0x1f, 0x8b, 0x08}
	// plainStart opens every uncompressed record.
	plainStart = []byte(`{"session":`)
	// syncMarker ends the empty stored block written by every gzip Flush.
	syncMarker = []byte{0x00, 0x00, 0xff, 0xff}
)

// Filter specifies criteria for replaying records. Zero values match everything.
type Filter struct {
	Channel string
	Session string
	Since   *time.Time
	Until   *time.Time
}

// Replay reads the recording at path and returns the records matching filter
// in the order they were appended. A missing file yields no records.
//
// Sessions sharing one file may use different compression modes, and a
// session that never closed its writer leaves an unterminated gzip member.
// Each segment is read on its own, so such a file is readable up to the last
// record every session flushed.
func Replay(path string, filter Filter) ([]models.LoggedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening recording for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReplayFrom(f, filter)
}

// ReplayFrom is Replay over an arbitrary reader.
func ReplayFrom(r io.Reader, filter Filter) ([]models.LoggedRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading recording: %w", err)
	}

	var records []models.LoggedRecord
	for pos := 0; pos < len(data); {
		rest := data[pos:]

		if !bytes.HasPrefix(rest, gzipMagic) {
			end := bytes.Index(rest, gzipMagic)
			if end < 0 {
				end = len(rest)
			}
			records, _ = decodeLines(bytes.NewReader(rest[:end]), filter, records)
			pos += end
			continue
		}

		decoded, n, ok := readMember(rest, filter, records)
		records = decoded
		if ok {
			pos += n
			continue
		}
		next := resync(rest, n)
		if next < 0 {
			break
		}
		pos += next
	}

	return records, nil
}

// readMember decodes the gzip member at the start of data. It returns the
// number of bytes consumed and whether the member ended cleanly.
func readMember(data []byte, filter Filter, records []models.LoggedRecord) ([]models.LoggedRecord, int, bool) {
	src := bytes.NewReader(data)
	gz, err := gzip.NewReader(src)
	if err != nil {
		return records, len(data) - src.Len(), false
	}
	gz.Multistream(false)
	defer func() { _ = gz.Close() }()

	records, err = decodeLines(gz, filter, records)
	return records, len(data) - src.Len(), err == nil
}

// resync finds where the segment after a broken gzip member starts. The
// member's valid data ends with a flush marker; the next segment is the first
// gzip header or plain record after it.
func resync(data []byte, consumed int) int {
	from := 1
	if i := bytes.LastIndex(data[:consumed], syncMarker); i >= 0 {
		from = max(from, i+len(syncMarker))
	} else {
		from = max(from, consumed-len(syncMarker))
	}

	next := -1
	for _, marker := range [][]byte{gzipMagic, plainStart} {
		if i := bytes.Index(data[from:], marker); i >= 0 && (next < 0 || i < next) {
			next = i
		}
	}
	if next < 0 {
		return -1
	}
	return from + next
}

// decodeLines appends the records of newline-delimited JSON read from r.
// Malformed and oversized lines are skipped. Records read before a failure are
// kept; the returned error is nil at a clean end of input.
func decodeLines(r io.Reader, filter Filter, records []models.LoggedRecord) ([]models.LoggedRecord, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var long []byte
	oversized := false

	for {
		chunk, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if !oversized && len(long)+len(chunk) <= maxLineSize {
				long = append(long, chunk...)
			} else {
				oversized = true
				long = long[:0]
			}
			continue
		}

		line := chunk
		if len(long) > 0 || oversized {
			if !oversized && len(long)+len(chunk) <= maxLineSize {
				long = append(long, chunk...)
				line = long
			} else {
				line = nil
			}
		}
		records = appendRecord(records, line, filter)
		long = long[:0]
		oversized = false

		if err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, err
		}
	}
}

func appendRecord(records []models.LoggedRecord, line []byte, filter Filter) []models.LoggedRecord {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return records
	}

	var rec models.LoggedRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return records // skip malformed lines
	}
	if filter.matches(rec) {
		records = append(records, rec)
	}
	return records
}

// Decode unmarshals the payload of rec into a T.
func Decode[T any](rec models.LoggedRecord) (T, error) {
	var v T
	if err := json.Unmarshal(rec.Payload, &v); err != nil {
		return v, fmt.Errorf("decoding payload of channel %q seq %d: %w", rec.Channel, rec.Sequence, err)
	}
	return v, nil
}

func (f Filter) matches(rec models.LoggedRecord) bool {
	if f.Channel != "" && rec.Channel != f.Channel {
		return false
	}
	if f.Session != "" && rec.Session != f.Session {
		return false
	}
	if f.Since != nil && rec.Time.Before(*f.Since) {
		return false
	}
	if f.Until != nil && rec.Time.After(*f.Until) {
		return false
	}
	return true
}
