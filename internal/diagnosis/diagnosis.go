package diagnosis

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/diagbus/internal/recording"
	"github.com/valter-silva-au/diagbus/pkg/models"
)

// Diagnosis is the entry point of the bus. It hands out channel handles,
// registers monitors and owns the recording writer.
type Diagnosis struct {
	cfg      models.DiagnosisConfig
	log      logrus.FieldLogger
	open     recording.Factory
	now      func() time.Time
	session  string
	registry *registry
	seq      atomic.Uint64

	// current is nil until the first enabled Channel call. Once set it never
	// changes; a sink without a writer means diagnosis runs in no-op mode.
	current atomic.Pointer[sink]
	mu      sync.Mutex
	closed  bool
}

type sink struct {
	w recording.Writer
}

// Option configures a Diagnosis.
type Option func(*Diagnosis)

// WithLogger sets the logger that receives recording and monitor failures. A
// nil logger keeps the default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Diagnosis) {
		if l != nil {
			d.log = l
		}
	}
}

// WithWriterFactory replaces the function used to open the recording.
func WithWriterFactory(f recording.Factory) Option {
	return func(d *Diagnosis) { d.open = f }
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Diagnosis) { d.now = now }
}

// New creates a Diagnosis for cfg. The recording is opened lazily on the first
// Channel call.
func New(cfg models.DiagnosisConfig, opts ...Option) *Diagnosis {
	d := &Diagnosis{
		cfg:      cfg,
		log:      logrus.StandardLogger(),
		open:     recording.NewFileWriter,
		now:      time.Now,
		session:  uuid.NewString(),
		registry: newRegistry(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the configuration the facade was built with.
func (d *Diagnosis) Config() models.DiagnosisConfig { return d.cfg }

// Session returns the identifier stamped on every record of this instance.
func (d *Diagnosis) Session() string { return d.session }

// Channels returns the sorted names of all channels seen so far.
func (d *Diagnosis) Channels() []string { return d.registry.names() }

// Channel returns a handle for publishing on id. When diagnosis is disabled,
// or the recording cannot be opened, the handle discards everything.
func Channel[T any](d *Diagnosis, id ChannelID[T]) Handle[T] {
	if !d.cfg.Enabled {
		return noopHandle[T]{}
	}
	if s := d.acquireSink(); s.w == nil {
		return noopHandle[T]{}
	}
	return &handle[T]{d: d, id: id, state: d.registry.getOrCreate(string(id))}
}

// RegisterMonitor subscribes m to id. If the channel already has a status, m
// receives it before RegisterMonitor returns. A nil monitor or empty id is
// ignored.
func RegisterMonitor[T any](d *Diagnosis, id ChannelID[T], m Monitor[T]) {
	if id == "" || m == nil {
		return
	}
	if f, ok := m.(MonitorFunc[T]); ok && f == nil {
		return
	}
	d.registry.getOrCreate(string(id)).subscribe(string(id), typedSubscriber[T]{m: m}, d.reportMonitorFailure)
}

// LastStatus returns the most recent status published on id.
func LastStatus[T any](d *Diagnosis, id ChannelID[T]) (Status[T], bool) {
	state := d.registry.lookup(string(id))
	if state == nil {
		return Status[T]{}, false
	}
	rec, ok := state.lastStatus()
	if !ok {
		return Status[T]{}, false
	}
	var payload T
	if rec.Payload != nil {
		p, ok := rec.Payload.(T)
		if !ok {
			return Status[T]{}, false
		}
		payload = p
	}
	return statusFrom(rec, payload), true
}

// Shutdown closes the recording. It is safe to call more than once and when no
// recording was ever opened. Channel returns no-op handles afterwards.
func (d *Diagnosis) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	s := d.current.Load()
	if s == nil {
		d.current.Store(&sink{})
		return nil
	}
	if s.w == nil {
		return nil
	}
	if err := s.w.Close(); err != nil {
		return fmt.Errorf("closing recording %s: %w", d.cfg.RecordingFile, err)
	}
	return nil
}

// acquireSink opens the recording exactly once. A failure is reported once and
// leaves the facade in no-op mode for the rest of the process.
func (d *Diagnosis) acquireSink() *sink {
	if s := d.current.Load(); s != nil {
		return s
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if s := d.current.Load(); s != nil {
		return s
	}

	s := &sink{}
	if !d.closed {
		w, err := d.open(d.cfg.RecordingFile, d.cfg.Compress)
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"path":    d.cfg.RecordingFile,
				"session": d.session,
			}).WithError(err).Error("diagnosis recording unavailable, channels disabled")
		} else {
			s.w = w
		}
	}
	d.current.Store(s)
	return s
}

// recordEntry stamps rec, appends it to the recording, then updates the channel
// and notifies its monitors. Everything happens under the channel lock, so on
// one channel sequence order, file order and delivery order agree. A failed
// append does not stop the notification.
func (d *Diagnosis) recordEntry(state *channelState, rec models.StatusRecord) {
	state.mu.Lock()
	defer state.mu.Unlock()

	rec.Sequence = d.seq.Add(1)
	rec.Time = d.now().UTC()

	if s := d.current.Load(); s != nil && s.w != nil {
		if err := s.w.Append(rec); err != nil {
			d.log.WithFields(logrus.Fields{
				"channel": rec.Channel,
				"seq":     rec.Sequence,
				"session": d.session,
			}).WithError(err).Warn("recording append failed")
		}
	}
	state.deliverLocked(rec, d.reportMonitorFailure)
}

func (d *Diagnosis) reportMonitorFailure(channel string, err error) {
	d.log.WithFields(logrus.Fields{
		"channel": channel,
		"session": d.session,
	}).WithError(err).Error("diagnosis monitor failed")
}
