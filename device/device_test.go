package device_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/servolab/activity"
	"github.com/nasa-jpl/servolab/device"
	"github.com/nasa-jpl/servolab/registers"
)

// event is one RecordAddrs call
type event struct {
	Kind   activity.EventKind
	Addrs  []uint32
	Values []int64
}

type recorder struct {
	events []event
}

func (r *recorder) RecordAddrs(kind activity.EventKind, addrs []uint32, values []int64) error {
	r.events = append(r.events, event{kind, addrs, values})
	return nil
}

type brokenReader struct{}

var errBroken = errors.New("bus fault")

func (brokenReader) ReadRegister(addr uint32) (int64, error) {
	if addr == 2 {
		return 0, errBroken
	}
	return int64(addr) * 10, nil
}

func TestPollOnceRecordsOneBatch(t *testing.T) {
	m := device.NewMock()
	m.Set(1, 11)
	m.Set(2, 22)
	rec := &recorder{}
	p := device.Poller{Dev: m, Rec: rec, Addrs: []uint32{2, 1, 3}, Log: zerolog.Nop()}
	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []event{{activity.Read, []uint32{2, 1, 3}, []int64{22, 11, 0}}}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestPollOnceRetriesTransientFailures(t *testing.T) {
	m := device.NewMock()
	m.Set(1, 5)
	m.Fail(1, 3)
	rec := &recorder{}
	p := device.Poller{Dev: m, Rec: rec, Addrs: []uint32{1}, Log: zerolog.Nop()}
	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.Reads() != 4 {
		t.Errorf("expected 3 failed reads and 1 good one, got %d reads", m.Reads())
	}
	if len(rec.events) != 1 || rec.events[0].Values[0] != 5 {
		t.Errorf("expected the retried read to be recorded, got %+v", rec.events)
	}
}

func TestPollOnceSkipsPermanentFailures(t *testing.T) {
	rec := &recorder{}
	p := device.Poller{Dev: brokenReader{}, Rec: rec, Addrs: []uint32{1, 2, 3}, Log: zerolog.Nop()}
	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []event{{activity.Read, []uint32{1, 3}, []int64{10, 30}}}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	rec.events = nil
	p.Addrs = []uint32{2}
	p.PollOnce(context.Background())
	if len(rec.events) != 0 {
		t.Errorf("a poll with no successful reads should record nothing, got %+v", rec.events)
	}
}

func TestPollOnceHonorsContext(t *testing.T) {
	m := device.NewMock()
	m.Fail(1, 1<<30)
	rec := &recorder{}
	p := device.Poller{Dev: m, Rec: rec, Addrs: []uint32{1}, MaxElapsed: time.Minute, Log: zerolog.Nop()}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.PollOnce(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestPollOnceLimiterHonorsDeadline(t *testing.T) {
	m := device.NewMock()
	rec := &recorder{}
	p := device.Poller{
		Dev:     m,
		Rec:     rec,
		Addrs:   []uint32{1, 2, 3},
		Limiter: rate.NewLimiter(rate.Limit(1), 1),
		Log:     zerolog.Nop(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	// the first read uses the burst, the second would wait a second
	err := p.PollOnce(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("an interrupted poll should record nothing, got %+v", rec.events)
	}
}

func TestPollerRunDefaultsPeriod(t *testing.T) {
	p := device.Poller{Dev: device.NewMock(), Rec: &recorder{}, Log: zerolog.Nop()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, period := range []time.Duration{0, -time.Second} {
		if err := p.Run(ctx, period); !errors.Is(err, context.Canceled) {
			t.Errorf("period %v: expected context.Canceled, got %v", period, err)
		}
	}
}

func TestPollerRateLimit(t *testing.T) {
	m := device.NewMock()
	rec := &recorder{}
	p := device.Poller{
		Dev:     m,
		Rec:     rec,
		Addrs:   []uint32{1, 2, 3, 4, 5},
		Limiter: rate.NewLimiter(rate.Limit(200), 1),
		Log:     zerolog.Nop(),
	}
	start := time.Now()
	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	// 5 reads at 200/s with a burst of 1 take at least 4 intervals of 5ms
	if el := time.Since(start); el < 15*time.Millisecond {
		t.Errorf("reads were not rate limited, poll took %v", el)
	}
}

func TestPollerRunFeedsTracker(t *testing.T) {
	cat, _ := registers.NewCatalog(registers.Definition{Name: "gain", Address: 0x10})
	tr, _ := activity.NewTracker(cat, activity.DefaultHolds())
	changes := make(chan int64, 16)
	tr.SetValueHandler(activity.ValueHandlerFunc(func(_ string, v int64) { changes <- v }))
	r := activity.NewRunner(tr, 0, zerolog.Nop())

	m := device.NewMock()
	m.Set(0x10, 42)
	p := device.Poller{Dev: m, Rec: r, Addrs: []uint32{0x10}, Log: zerolog.Nop()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, time.Millisecond) }()

	select {
	case v := <-changes:
		if v != 42 {
			t.Errorf("expected 42, got %d", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller never reported a value")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRecordingReportsWritesAndReads(t *testing.T) {
	m := device.NewMock()
	rec := &recorder{}
	dev := device.Recording{Dev: m, Rec: rec}
	if err := dev.Write(7, 3); err != nil {
		t.Fatal(err)
	}
	if m.Get(7) != 3 {
		t.Errorf("write did not reach the device")
	}
	v, err := dev.Read(7)
	if err != nil || v != 3 {
		t.Errorf("expected to read back 3, got %d, %v", v, err)
	}
	want := []event{
		{activity.Written, []uint32{7}, []int64{3}},
		{activity.Read, []uint32{7}, []int64{3}},
	}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	m.Fail(7, 1)
	if _, err = dev.Read(7); !errors.Is(err, device.ErrTransient) {
		t.Errorf("expected ErrTransient, got %v", err)
	}
	if len(rec.events) != 2 {
		t.Errorf("a failed read must not be recorded")
	}
}
