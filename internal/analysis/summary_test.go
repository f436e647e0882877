package analysis

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/valter-silva-au/diagbus/internal/recording"
	"github.com/valter-silva-au/diagbus/pkg/models"
)

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.RecordCount != 0 {
		t.Errorf("expected 0 records, got %d", s.RecordCount)
	}
	if len(s.Channels) != 0 || len(s.Sessions) != 0 {
		t.Errorf("expected no channels or sessions, got %+v", s)
	}
	if s.OldestRecord != nil || s.NewestRecord != nil {
		t.Error("expected no time range for empty input")
	}
}

func TestSummarize_ChannelsAndSessions(t *testing.T) {
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	records := []models.LoggedRecord{
		{Session: "s1", Sequence: 1, Channel: "mem", Time: base},
		{Session: "s1", Sequence: 2, Channel: "cpu", Time: base.Add(time.Minute)},
		{Session: "s2", Sequence: 1, Channel: "mem", Time: base.Add(2 * time.Minute)},
		{Session: "s2", Sequence: 2, Channel: "mem", Time: base.Add(3 * time.Minute)},
	}

	s := Summarize(records)

	if s.RecordCount != 4 {
		t.Errorf("expected 4 records, got %d", s.RecordCount)
	}
	if len(s.Sessions) != 2 || s.Sessions[0] != "s1" || s.Sessions[1] != "s2" {
		t.Errorf("unexpected sessions %v", s.Sessions)
	}
	if len(s.Channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(s.Channels))
	}
	if s.Channels[0].Channel != "cpu" || s.Channels[0].Count != 1 {
		t.Errorf("unexpected cpu summary %+v", s.Channels[0])
	}
	mem := s.Channels[1]
	if mem.Channel != "mem" || mem.Count != 3 {
		t.Errorf("unexpected mem summary %+v", mem)
	}
	if !mem.First.Equal(base) || !mem.Last.Equal(base.Add(3*time.Minute)) {
		t.Errorf("unexpected mem range %v - %v", mem.First, mem.Last)
	}
	if !s.OldestRecord.Equal(base) || !s.NewestRecord.Equal(base.Add(3*time.Minute)) {
		t.Errorf("unexpected overall range %v - %v", s.OldestRecord, s.NewestRecord)
	}
}

func TestSummarizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagnosis.record")
	w, err := recording.NewFileWriter(path, true)
	if err != nil {
		t.Fatalf("creating writer: %v", err)
	}
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	for i, ch := range []string{"a", "b", "a"} {
		rec := models.StatusRecord{Session: "s", Sequence: uint64(i + 1), Channel: ch, Time: base, Payload: i}
		if err := w.Append(rec); err != nil {
			t.Fatalf("appending: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}

	s, err := SummarizeFile(path, recording.Filter{Channel: "a"})
	if err != nil {
		t.Fatalf("summarizing: %v", err)
	}
	if s.RecordCount != 2 || len(s.Channels) != 1 || s.Channels[0].Count != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
}
