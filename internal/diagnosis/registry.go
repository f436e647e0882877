package diagnosis

import (
	"sort"
	"sync"

	"github.com/valter-silva-au/diagbus/pkg/models"
)

// reportFunc receives failures that must not reach the publisher.
type reportFunc func(channel string, err error)

// channelState holds the latest status and the subscribers of one channel.
// Publishing and subscribing hold mu for their whole critical section, so a
// subscriber sees either the replay of the previous value followed by the new
// one, or only the new one.
type channelState struct {
	mu          sync.Mutex
	last        *models.StatusRecord
	subscribers []subscriber
}

// deliverLocked stores rec as the latest status and notifies every subscriber.
// The caller holds s.mu.
func (s *channelState) deliverLocked(rec models.StatusRecord, report reportFunc) {
	s.last = &rec
	for _, sub := range s.subscribers {
		if err := safeDeliver(sub, rec); err != nil {
			report(rec.Channel, err)
		}
	}
}

func (s *channelState) subscribe(channel string, sub subscriber, report reportFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last != nil {
		if err := safeDeliver(sub, *s.last); err != nil {
			report(channel, err)
		}
	}
	s.subscribers = append(s.subscribers, sub)
}

func (s *channelState) lastStatus() (models.StatusRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return models.StatusRecord{}, false
	}
	return *s.last, true
}

// registry maps channel names to their state. The table lock only covers
// lookup and insertion; per-channel work happens under the channel's own lock.
type registry struct {
	mu       sync.RWMutex
	channels map[string]*channelState
}

func newRegistry() *registry {
	return &registry{channels: make(map[string]*channelState)}
}

// getOrCreate returns the state for name, creating it at most once.
func (r *registry) getOrCreate(name string) *channelState {
	if s := r.lookup(name); s != nil {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.channels[name]; ok {
		return s
	}
	s := &channelState{}
	r.channels[name] = s
	return s
}

func (r *registry) lookup(name string) *channelState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[name]
}

func (r *registry) names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}
