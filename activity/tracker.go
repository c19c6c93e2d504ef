/*Package activity tracks which registers were recently read, written or changed.

A Tracker is fed events by the device layer and keeps two pieces of state:
the last known value of every register in its catalog, and a pending expiry
for every (register, kind) mark that is currently active.  Presentation code
installs a MarkHandler and a ValueHandler and is told when a mark turns on or
off and when a value changes.

Marks decay.  The host calls Sweep periodically (tens of ms) and every mark
whose hold duration has elapsed is cleared.  A mark that is set again before it
expires has its expiry pushed back; it is never pending twice.

A Tracker does no I/O, never blocks and has no goroutines of its own.  It is
not safe for concurrent use; wrap it in a Runner, or serialize calls yourself.
Handlers are invoked synchronously and must not call back into the Tracker.
*/
package activity

import (
	"errors"
	"fmt"
	"time"

	"github.com/nasa-jpl/servolab/registers"
)

// ErrArityMismatch is generated when a batch has a different number of
// targets and values
var ErrArityMismatch = errors.New("number of registers and values differ")

// Mark is a snapshot of one active mark
type Mark struct {
	Key     MarkKey   `json:"key"`
	Expires time.Time `json:"expires"`
}

type cached struct {
	value int64
	known bool
}

// Tracker maintains register values and decaying activity marks for one catalog.
// Trackers must be created with NewTracker.
type Tracker struct {
	// Now is the clock used to timestamp events, time.Now by default
	Now func() time.Time

	cat     *registers.Catalog
	holds   Holds
	values  map[string]cached
	pending *expiryQueue

	marks   MarkHandler
	changes ValueHandler
}

// NewTracker creates a tracker for cat.  Every register starts with an unknown value.
func NewTracker(cat *registers.Catalog, holds Holds) (*Tracker, error) {
	if cat == nil {
		return nil, errors.New("activity: nil catalog")
	}
	if err := holds.Validate(); err != nil {
		return nil, err
	}
	values := make(map[string]cached, cat.Len())
	for _, name := range cat.Names() {
		values[name] = cached{}
	}
	return &Tracker{
		Now:     time.Now,
		cat:     cat,
		holds:   holds,
		values:  values,
		pending: newExpiryQueue(),
	}, nil
}

// SetMarkHandler replaces the mark handler.  nil, including a typed nil such
// as (*View)(nil), disables mark notifications.
func (t *Tracker) SetMarkHandler(h MarkHandler) {
	if isNil(h) {
		h = nil
	}
	t.marks = h
}

// SetValueHandler replaces the value handler.  nil, typed or not, disables
// value notifications.
func (t *Tracker) SetValueHandler(h ValueHandler) {
	if isNil(h) {
		h = nil
	}
	t.changes = h
}

// Catalog returns the catalog the tracker was built with
func (t *Tracker) Catalog() *registers.Catalog {
	return t.cat
}

// Holds returns the hold durations in use
func (t *Tracker) Holds() Holds {
	return t.holds
}

// Record reports an event with a value on a single register
func (t *Tracker) Record(kind EventKind, name string, value int64) error {
	return t.RecordNames(kind, []string{name}, []int64{value})
}

// RecordAddr reports an event with a value on the register at addr
func (t *Tracker) RecordAddr(kind EventKind, addr uint32, value int64) error {
	return t.RecordAddrs(kind, []uint32{addr}, []int64{value})
}

// Touch reports an event without values on one or more registers.
// Only the kind's mark is set; the value cache is not consulted.
func (t *Tracker) Touch(kind EventKind, names ...string) error {
	return t.RecordNames(kind, names, nil)
}

// TouchAddr is Touch for registers identified by address
func (t *Tracker) TouchAddr(kind EventKind, addrs ...uint32) error {
	return t.RecordAddrs(kind, addrs, nil)
}

// RecordNames reports an event on several registers at once.
// values is either nil (no values) or the same length as names.
//
// The batch is atomic: every name is resolved before anything is applied, so
// an unknown register or an arity mismatch leaves the tracker untouched and
// fires no handler.  Elements are then applied in order, each exactly as a
// single-register Record would.
func (t *Tracker) RecordNames(kind EventKind, names []string, values []int64) error {
	if err := t.check(kind, len(names), values); err != nil {
		return err
	}
	for _, name := range names {
		if !t.cat.Has(name) {
			_, err := t.cat.ByName(name)
			return err
		}
	}
	t.apply(kind, names, values)
	return nil
}

// RecordAddrs is RecordNames for registers identified by address
func (t *Tracker) RecordAddrs(kind EventKind, addrs []uint32, values []int64) error {
	if err := t.check(kind, len(addrs), values); err != nil {
		return err
	}
	names := make([]string, len(addrs))
	for i, a := range addrs {
		name, err := t.cat.NameFromAddress(a)
		if err != nil {
			return err
		}
		names[i] = name
	}
	t.apply(kind, names, values)
	return nil
}

func (t *Tracker) check(kind EventKind, n int, values []int64) error {
	if kind < Read || kind > Changed {
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	if values != nil && len(values) != n {
		return fmt.Errorf("%w: %d registers, %d values", ErrArityMismatch, n, len(values))
	}
	return nil
}

func (t *Tracker) apply(kind EventKind, names []string, values []int64) {
	now := t.Now()
	for i, name := range names {
		t.mark(name, kind, now)

		// Changed is never compared against the cache; an event cannot
		// synthesize itself
		if kind == Changed || values == nil {
			continue
		}
		v := values[i]
		if c := t.values[name]; c.known && c.value == v {
			continue
		}
		t.values[name] = cached{value: v, known: true}
		if t.changes != nil {
			t.changes.ValueChanged(name, v)
		}
		t.mark(name, Changed, now)
	}
}

func (t *Tracker) mark(name string, kind EventKind, now time.Time) {
	t.pending.schedule(MarkKey{Register: name, Kind: kind}, now.Add(t.holds.For(kind)))
	if t.marks != nil {
		t.marks.Mark(name, kind, true)
	}
}

// Sweep clears every mark whose expiry is at or before now, telling the mark
// handler about each one exactly once.  Marks not yet due are left for a
// later sweep.  It returns the number of marks cleared.
func (t *Tracker) Sweep(now time.Time) int {
	due := t.pending.due(now)
	for _, k := range due {
		if t.marks != nil {
			t.marks.Mark(k.Register, k.Kind, false)
		}
		t.pending.remove(k)
	}
	return len(due)
}

// Value returns the last observed value of a register.
// known is false if the register has never been observed with a value.
func (t *Tracker) Value(name string) (value int64, known bool, err error) {
	c, ok := t.values[name]
	if !ok {
		_, err = t.cat.ByName(name)
		return 0, false, err
	}
	return c.value, c.known, nil
}

// Active returns true if the (name, kind) mark is pending expiry
func (t *Tracker) Active(name string, kind EventKind) bool {
	_, ok := t.pending.expires(MarkKey{Register: name, Kind: kind})
	return ok
}

// Expires returns when the (name, kind) mark is due to be cleared
func (t *Tracker) Expires(name string, kind EventKind) (time.Time, bool) {
	return t.pending.expires(MarkKey{Register: name, Kind: kind})
}

// Marks returns every active mark, soonest to expire first
func (t *Tracker) Marks() []Mark {
	return t.pending.snapshot()
}

// Pending is the number of active marks
func (t *Tracker) Pending() int {
	return t.pending.len()
}
