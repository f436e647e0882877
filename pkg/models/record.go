package models

import (
	"encoding/json"
	"time"
)

// StatusRecord is one published update as it travels from a publisher to the
// registry and the recording. It is not mutated after creation.
type StatusRecord struct {
	Session  string    `json:"session"`
	Sequence uint64    `json:"seq"`
	Channel  string    `json:"channel"`
	Time     time.Time `json:"time"`
	Payload  any       `json:"payload"`
	Stack    []string  `json:"stack,omitempty"`
}

// LoggedRecord is a StatusRecord read back from a recording. The payload is
// kept in its encoded form until the caller decodes it into a concrete type.
type LoggedRecord struct {
	Session  string          `json:"session" yaml:"session"`
	Sequence uint64          `json:"seq" yaml:"seq"`
	Channel  string          `json:"channel" yaml:"channel"`
	Time     time.Time       `json:"time" yaml:"time"`
	Payload  json.RawMessage `json:"payload" yaml:"-"`
	Stack    []string        `json:"stack,omitempty" yaml:"stack,omitempty"`
}
