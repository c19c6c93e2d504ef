/*Package device connects a register-level device to an activity tracker.

The device itself (framing, sockets, telemetry buffers) lives elsewhere; this
package only sees decoded register values.  A Poller reads a set of registers
periodically and reports them as one Read event, and Recording wraps reads and
writes so that each is reported as it happens.
*/
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/servolab/activity"
)

// DefaultPollPeriod is the poll period used by Run when none is given
const DefaultPollPeriod = 100 * time.Millisecond

var (
	// ErrTransient is generated by devices for failures that are worth retrying
	ErrTransient = errors.New("transient device error")
)

// Reader reads decoded register values
type Reader interface {
	ReadRegister(addr uint32) (int64, error)
}

// Writer writes register values
type Writer interface {
	WriteRegister(addr uint32, value int64) error
}

// ReadWriter can read and write registers
type ReadWriter interface {
	Reader
	Writer
}

// Recorder accepts register events, it is satisfied by *activity.Tracker and *activity.Runner
type Recorder interface {
	RecordAddrs(kind activity.EventKind, addrs []uint32, values []int64) error
}

// Recording reports every read and write it performs to Rec
type Recording struct {
	Dev ReadWriter
	Rec Recorder
}

// Read reads addr and records a Read event
func (r Recording) Read(addr uint32) (int64, error) {
	v, err := r.Dev.ReadRegister(addr)
	if err != nil {
		return 0, err
	}
	return v, r.Rec.RecordAddrs(activity.Read, []uint32{addr}, []int64{v})
}

// Write writes value to addr and records a Written event
func (r Recording) Write(addr uint32, value int64) error {
	if err := r.Dev.WriteRegister(addr, value); err != nil {
		return err
	}
	return r.Rec.RecordAddrs(activity.Written, []uint32{addr}, []int64{value})
}

// Poller periodically reads a fixed set of registers
type Poller struct {
	// Dev is the device to read from
	Dev Reader

	// Rec receives one Read event per poll, covering every register read successfully
	Rec Recorder

	// Addrs are the registers to read, in order
	Addrs []uint32

	// Limiter bounds the rate of individual reads, nil means unlimited
	Limiter *rate.Limiter

	// MaxElapsed bounds the time spent retrying one register, 1s if zero
	MaxElapsed time.Duration

	Log zerolog.Logger
}

// PollOnce reads every register and records the successful reads as one batch.
// Reads failing with ErrTransient are retried with exponential backoff; other
// failures skip the register for this poll.
func (p *Poller) PollOnce(ctx context.Context) error {
	addrs := make([]uint32, 0, len(p.Addrs))
	values := make([]int64, 0, len(p.Addrs))
	for _, a := range p.Addrs {
		v, err := p.read(ctx, a)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.Log.Warn().Err(err).Uint32("addr", a).Msg("register read failed")
			continue
		}
		addrs = append(addrs, a)
		values = append(values, v)
	}
	if len(addrs) == 0 {
		return nil
	}
	return p.Rec.RecordAddrs(activity.Read, addrs, values)
}

// Run calls PollOnce every period until ctx is done, then returns ctx.Err().
// A non-positive period is replaced by DefaultPollPeriod.
func (p *Poller) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		period = DefaultPollPeriod
	}
	tick := time.NewTicker(period)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
				p.Log.Error().Err(err).Msg("poll failed")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Poller) read(ctx context.Context, addr uint32) (int64, error) {
	maxElapsed := p.MaxElapsed
	if maxElapsed == 0 {
		maxElapsed = time.Second
	}
	var (
		v       int64
		limited bool
	)
	start := time.Now()
	op := func() error {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				limited = true
				return backoff.Permanent(err)
			}
		}
		var err error
		v, err = p.Dev.ReadRegister(addr)
		if err != nil && !errors.Is(err, ErrTransient) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(&backoff.ExponentialBackOff{
		InitialInterval:     time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         100 * time.Millisecond,
		MaxElapsedTime:      maxElapsed,
		Clock:               backoff.SystemClock}, ctx)
	err := backoff.Retry(op, b)
	if err == nil {
		return v, nil
	}
	// the backoff and the limiter both give up early when the next attempt
	// would land past the deadline
	if limited || (errors.Is(err, ErrTransient) && time.Since(start) < maxElapsed) {
		return 0, deadlineErr(ctx, err)
	}
	return 0, err
}

func deadlineErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}
