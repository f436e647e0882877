package diagnosis

import (
	"time"

	"github.com/valter-silva-au/diagbus/pkg/models"
)

// ChannelID identifies a channel and, through T, the payload type published on
// it. Names must be unique across payload types.
type ChannelID[T any] string

// Status is one update delivered to a monitor.
type Status[T any] struct {
	Channel  ChannelID[T]
	Payload  T
	Sequence uint64
	Time     time.Time
	Session  string
	Stack    []string
}

// Handle publishes updates on a single channel.
type Handle[T any] interface {
	Publish(payload T)
}

// handle is the functioning Handle. It keeps the channel state it was created
// for so publishing never touches the registry table.
type handle[T any] struct {
	d     *Diagnosis
	id    ChannelID[T]
	state *channelState
}

func (h *handle[T]) Publish(payload T) {
	rec := models.StatusRecord{
		Session: h.d.session,
		Channel: string(h.id),
		Payload: payload,
	}
	if h.d.cfg.StackTraces {
		rec.Stack = captureStack(h.d.cfg.StackDepth)
	}
	h.d.recordEntry(h.state, rec)
}

// noopHandle is returned when diagnosis is disabled or the recording could not
// be opened.
type noopHandle[T any] struct{}

func (noopHandle[T]) Publish(T) {}

func statusFrom[T any](rec models.StatusRecord, payload T) Status[T] {
	return Status[T]{
		Channel:  ChannelID[T](rec.Channel),
		Payload:  payload,
		Sequence: rec.Sequence,
		Time:     rec.Time,
		Session:  rec.Session,
		Stack:    rec.Stack,
	}
}
