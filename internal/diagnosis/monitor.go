package diagnosis

import (
	"fmt"

	"github.com/valter-silva-au/diagbus/pkg/models"
)

// Monitor receives every status published on the channel it is registered
// for. The registry keeps a reference but does not own the monitor.
type Monitor[T any] interface {
	OnStatusChange(status Status[T])
}

// MonitorFunc adapts a function to a Monitor.
type MonitorFunc[T any] func(status Status[T])

// OnStatusChange calls f(status).
func (f MonitorFunc[T]) OnStatusChange(status Status[T]) { f(status) }

// subscriber is the untyped form stored in a channel's subscriber list.
type subscriber interface {
	deliver(rec models.StatusRecord) error
}

type typedSubscriber[T any] struct {
	m Monitor[T]
}

func (s typedSubscriber[T]) deliver(rec models.StatusRecord) error {
	var payload T
	if rec.Payload != nil {
		p, ok := rec.Payload.(T)
		if !ok {
			return fmt.Errorf("payload type mismatch: monitor expects %T, got %T", payload, rec.Payload)
		}
		payload = p
	}
	s.m.OnStatusChange(statusFrom(rec, payload))
	return nil
}

// safeDeliver converts a monitor panic into an error.
func safeDeliver(sub subscriber, rec models.StatusRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor panicked: %v", r)
		}
	}()
	return sub.deliver(rec)
}
