package activity

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSweepPeriod is how often Run sweeps if Period is not set
const DefaultSweepPeriod = 20 * time.Millisecond

// Runner is the host loop around a Tracker.  It serializes every tracker
// operation behind one mutex so that device pollers, HTTP handlers and the
// sweep ticker can share a tracker, and it drives the periodic sweep.
//
// Handlers run with the Runner's lock held and must not call back into it.
type Runner struct {
	// Period is the sweep period of Run
	Period time.Duration

	// Log receives rejected events and loop lifecycle messages
	Log zerolog.Logger

	mu sync.Mutex
	t  *Tracker
}

// NewRunner wraps t
func NewRunner(t *Tracker, period time.Duration, log zerolog.Logger) *Runner {
	return &Runner{Period: period, Log: log, t: t}
}

// Record is Tracker.Record under the runner's lock
func (r *Runner) Record(kind EventKind, name string, value int64) error {
	return r.RecordNames(kind, []string{name}, []int64{value})
}

// RecordAddr is Tracker.RecordAddr under the runner's lock
func (r *Runner) RecordAddr(kind EventKind, addr uint32, value int64) error {
	return r.RecordAddrs(kind, []uint32{addr}, []int64{value})
}

// Touch is Tracker.Touch under the runner's lock
func (r *Runner) Touch(kind EventKind, names ...string) error {
	return r.RecordNames(kind, names, nil)
}

// RecordNames is Tracker.RecordNames under the runner's lock
func (r *Runner) RecordNames(kind EventKind, names []string, values []int64) error {
	r.mu.Lock()
	err := r.t.RecordNames(kind, names, values)
	r.mu.Unlock()
	if err != nil {
		r.Log.Warn().Err(err).Str("kind", kind.String()).Strs("registers", names).Msg("event rejected")
	}
	return err
}

// RecordAddrs is Tracker.RecordAddrs under the runner's lock
func (r *Runner) RecordAddrs(kind EventKind, addrs []uint32, values []int64) error {
	r.mu.Lock()
	err := r.t.RecordAddrs(kind, addrs, values)
	r.mu.Unlock()
	if err != nil {
		r.Log.Warn().Err(err).Str("kind", kind.String()).Int("count", len(addrs)).Msg("event rejected")
	}
	return err
}

// Sweep is Tracker.Sweep under the runner's lock
func (r *Runner) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Sweep(now)
}

// Value is Tracker.Value under the runner's lock
func (r *Runner) Value(name string) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Value(name)
}

// Active is Tracker.Active under the runner's lock
func (r *Runner) Active(name string, kind EventKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Active(name, kind)
}

// Marks is Tracker.Marks under the runner's lock
func (r *Runner) Marks() []Mark {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Marks()
}

// Run sweeps the tracker every Period until ctx is done, then returns ctx.Err()
func (r *Runner) Run(ctx context.Context) error {
	period := r.Period
	if period <= 0 {
		period = DefaultSweepPeriod
	}
	tick := time.NewTicker(period)
	defer tick.Stop()
	r.Log.Debug().Dur("period", period).Msg("mark sweep started")
	for {
		select {
		case now := <-tick.C:
			if n := r.Sweep(now); n > 0 {
				r.Log.Trace().Int("cleared", n).Msg("swept marks")
			}
		case <-ctx.Done():
			r.Log.Debug().Msg("mark sweep stopped")
			return ctx.Err()
		}
	}
}
