package activity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownKind is generated when parsing an event kind that does not exist
	ErrUnknownKind = errors.New("unknown event kind")

	// ErrInvalidHold is generated when a hold duration is negative
	ErrInvalidHold = errors.New("hold duration must not be negative")
)

// EventKind is the reason a register came to the tracker's attention
type EventKind int

const (
	// Read means the register was read from the device
	Read EventKind = iota

	// Written means the register was written to the device
	Written

	// Changed means the register value differs from the previously cached one
	Changed
)

// Kinds is the closed set of event kinds, in declaration order
var Kinds = []EventKind{Read, Written, Changed}

var kindNames = [...]string{"read", "written", "changed"}

func (k EventKind) String() string {
	if k < Read || k > Changed {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseEventKind converts "read", "written" or "changed" (case insensitive) to an EventKind
func ParseEventKind(s string) (EventKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == s {
			return EventKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler
func (k EventKind) MarshalText() ([]byte, error) {
	if k < Read || k > Changed {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *EventKind) UnmarshalText(b []byte) error {
	v, err := ParseEventKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MarkKey identifies a "recently active" fact about a register
type MarkKey struct {
	Register string    `json:"register"`
	Kind     EventKind `json:"kind"`
}

// Holds is how long a mark stays active after each kind of event.
// Reads are far more frequent than writes and use a much shorter hold,
// otherwise every polled register would stay highlighted.
type Holds struct {
	Read    time.Duration
	Written time.Duration
	Changed time.Duration
}

// DefaultHolds returns the usual hold policy of 100ms for reads and 1s for
// writes and changes
func DefaultHolds() Holds {
	return Holds{
		Read:    100 * time.Millisecond,
		Written: time.Second,
		Changed: time.Second,
	}
}

// For returns the hold duration of kind
func (h Holds) For(kind EventKind) time.Duration {
	switch kind {
	case Read:
		return h.Read
	case Written:
		return h.Written
	default:
		return h.Changed
	}
}

// Validate returns ErrInvalidHold if any duration is negative
func (h Holds) Validate() error {
	for _, k := range Kinds {
		if h.For(k) < 0 {
			return fmt.Errorf("%w: %s hold is %v", ErrInvalidHold, k, h.For(k))
		}
	}
	return nil
}
