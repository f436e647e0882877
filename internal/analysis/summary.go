// Package analysis derives summaries from replayed diagnosis recordings.
package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/valter-silva-au/diagbus/internal/recording"
	"github.com/valter-silva-au/diagbus/pkg/models"
)

// ChannelSummary aggregates the records of one channel.
type ChannelSummary struct {
	Channel string    `json:"channel"`
	Count   int       `json:"count"`
	First   time.Time `json:"first"`
	Last    time.Time `json:"last"`
}

// Summary holds figures derived from a recording.
type Summary struct {
	RecordCount  int              `json:"record_count"`
	Sessions     []string         `json:"sessions"`
	Channels     []ChannelSummary `json:"channels"`
	OldestRecord *time.Time       `json:"oldest_record,omitempty"`
	NewestRecord *time.Time       `json:"newest_record,omitempty"`
}

// Summarize aggregates records. Sessions keep their order of first
// appearance; channels are sorted by name.
func Summarize(records []models.LoggedRecord) *Summary {
	s := &Summary{RecordCount: len(records)}

	seenSessions := make(map[string]bool)
	byChannel := make(map[string]*ChannelSummary)

	for _, rec := range records {
		if !seenSessions[rec.Session] {
			seenSessions[rec.Session] = true
			s.Sessions = append(s.Sessions, rec.Session)
		}

		t := rec.Time
		if s.OldestRecord == nil || t.Before(*s.OldestRecord) {
			s.OldestRecord = &t
		}
		if s.NewestRecord == nil || t.After(*s.NewestRecord) {
			s.NewestRecord = &t
		}

		cs, ok := byChannel[rec.Channel]
		if !ok {
			cs = &ChannelSummary{Channel: rec.Channel, First: t, Last: t}
			byChannel[rec.Channel] = cs
		}
		cs.Count++
		if t.Before(cs.First) {
			cs.First = t
		}
		if t.After(cs.Last) {
			cs.Last = t
		}
	}

	s.Channels = make([]ChannelSummary, 0, len(byChannel))
	for _, cs := range byChannel {
		s.Channels = append(s.Channels, *cs)
	}
	sort.Slice(s.Channels, func(i, j int) bool { return s.Channels[i].Channel < s.Channels[j].Channel })

	return s
}

// SummarizeFile replays the recording at path and summarizes it.
func SummarizeFile(path string, filter recording.Filter) (*Summary, error) {
	records, err := recording.Replay(path, filter)
	if err != nil {
		return nil, fmt.Errorf("reading records for summary: %w", err)
	}
	return Summarize(records), nil
}
