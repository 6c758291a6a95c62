package eventbus

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/annel0/levelforge/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchOrder(t *testing.T) {
	bus := New[int]("order")
	var calls []string

	record := func(name string) Handler[int] {
		return func(*Event[int], *Subscription[int]) { calls = append(calls, name) }
	}
	bus.Register(record("low"), PriorityLow, nil, "")
	bus.Register(record("monitor"), PriorityMonitor, nil, "")
	bus.Register(record("normal-1"), PriorityNormal, nil, "")
	bus.Register(record("system"), PrioritySystem, nil, "")
	bus.Register(record("normal-2"), PriorityNormal, nil, "")
	bus.Register(record("high"), PriorityHigh, nil, "")

	bus.Dispatch("any", 1)
	assert.Equal(t, []string{"system", "high", "normal-1", "normal-2", "low", "monitor"}, calls)
}

func TestCancelDoesNotStopDispatch(t *testing.T) {
	bus := New[string]("cancel")

	var seen []bool
	bus.Register(func(ev *Event[string], _ *Subscription[string]) { ev.Cancel() }, PriorityHigh, nil, "")
	bus.Register(func(ev *Event[string], _ *Subscription[string]) { seen = append(seen, ev.Canceled()) }, PriorityNormal, nil, "")
	bus.Register(func(ev *Event[string], _ *Subscription[string]) { ev.Allow() }, PriorityLow, nil, "")
	bus.Register(func(ev *Event[string], _ *Subscription[string]) { seen = append(seen, ev.Canceled()) }, PriorityMonitor, nil, "")

	ev := bus.Dispatch("src", "payload")
	assert.Equal(t, []bool{true, false}, seen)
	assert.False(t, ev.Canceled())
	assert.Equal(t, "payload", ev.Payload)
	assert.Equal(t, "src", ev.Source)
}

func TestOwnerFilter(t *testing.T) {
	bus := New[int]("owner")
	var alice, global int

	bus.Register(func(*Event[int], *Subscription[int]) { alice++ }, PriorityNormal, nil, "alice")
	bus.Register(func(*Event[int], *Subscription[int]) { global++ }, PriorityNormal, nil, "")

	bus.Dispatch("alice", 0)
	bus.Dispatch("bob", 0)

	assert.Equal(t, 1, alice)
	assert.Equal(t, 2, global)
}

func TestUnregisterInsideHandler(t *testing.T) {
	bus := New[int]("self")
	calls := 0

	sub := bus.Register(func(_ *Event[int], s *Subscription[int]) {
		calls++
		s.Unregister()
		s.Unregister()
	}, PriorityNormal, "ctx", "")
	assert.Equal(t, "ctx", sub.Data())

	bus.Dispatch("", 0)
	bus.Dispatch("", 0)

	assert.Equal(t, 1, calls)
	assert.False(t, sub.Active())
	assert.Equal(t, 0, bus.Len())
}

func TestSnapshotSemantics(t *testing.T) {
	bus := New[int]("snapshot")
	var calls []string

	var later *Subscription[int]
	bus.Register(func(*Event[int], *Subscription[int]) {
		calls = append(calls, "first")
		// добавленная во время обхода подписка сработает только в следующем
		bus.Register(func(*Event[int], *Subscription[int]) { calls = append(calls, "added") }, PriorityMonitor, nil, "")
		later.Unregister()
	}, PriorityHigh, nil, "")
	later = bus.Register(func(*Event[int], *Subscription[int]) { calls = append(calls, "removed") }, PriorityLow, nil, "")

	bus.Dispatch("", 0)
	assert.Equal(t, []string{"first"}, calls)
}

func TestRegisterOnce(t *testing.T) {
	bus := New[int]("once")
	calls := 0
	sub := bus.RegisterOnce(func(*Event[int], *Subscription[int]) { calls++ }, PriorityNormal, nil, "p1")

	bus.Dispatch("p2", 0)
	assert.True(t, sub.Active(), "событие чужого источника не расходует подписку")

	bus.Dispatch("p1", 0)
	bus.Dispatch("p1", 0)
	assert.Equal(t, 1, calls)
	assert.False(t, sub.Active())
}

func TestUnregisterOwner(t *testing.T) {
	bus := New[int]("owners")
	noop := func(*Event[int], *Subscription[int]) {}
	bus.Register(noop, PriorityNormal, nil, "alice")
	bus.Register(noop, PriorityHigh, nil, "alice")
	bus.Register(noop, PriorityNormal, nil, "bob")

	assert.Equal(t, 2, bus.UnregisterOwner("alice"))
	assert.Equal(t, 0, bus.UnregisterOwner("alice"))
	assert.Equal(t, 1, bus.Len())
}

func TestPanicIsRecovered(t *testing.T) {
	bus := New[int]("panic")
	after := false
	bus.Register(func(*Event[int], *Subscription[int]) { panic("boom") }, PriorityHigh, nil, "")
	bus.Register(func(*Event[int], *Subscription[int]) { after = true }, PriorityLow, nil, "")

	require.NotPanics(t, func() { bus.Dispatch("", 0) })
	assert.True(t, after)

	stats := bus.Stats()
	assert.Equal(t, uint64(1), stats.Panics)
	assert.Equal(t, uint64(1), stats.Handled)
	assert.Equal(t, uint64(1), stats.Dispatched)
}

func TestConcurrentRegisterAndDispatch(t *testing.T) {
	bus := New[int]("race")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sub := bus.Register(func(*Event[int], *Subscription[int]) {}, Priority(j%5), nil, "")
				sub.Unregister()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Dispatch("", j)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, bus.Len())
	assert.Equal(t, uint64(800), bus.Stats().Dispatched)
}

func TestMetricsExporter(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := New[int]("blocks")
	bus.Register(func(ev *Event[int], _ *Subscription[int]) {
		if ev.Payload < 0 {
			ev.Cancel()
		}
	}, PriorityNormal, nil, "")

	me := NewMetricsExporter(reg, time.Hour, bus)
	bus.Dispatch("", 1)
	bus.Dispatch("", -1)
	me.Collect()
	bus.Dispatch("", -2)
	me.Collect()

	assert.Equal(t, 3.0, testutil.ToFloat64(me.dispatched.WithLabelValues("blocks")))
	assert.Equal(t, 2.0, testutil.ToFloat64(me.canceled.WithLabelValues("blocks")))
	assert.Equal(t, 3.0, testutil.ToFloat64(me.handled.WithLabelValues("blocks")))
	assert.Equal(t, 1.0, testutil.ToFloat64(me.subscriptions.WithLabelValues("blocks")))

	me.Start()
	me.Stop()
}

func TestAttachLogger(t *testing.T) {
	var buf bytes.Buffer
	logging.SetDefault(logging.NewWriterLogger("test", &buf, logging.DEBUG))
	defer logging.SetDefault(nil)

	bus := New[int]("logged")
	sub := AttachLogger(bus, func(v int) string { return "value" })
	assert.Equal(t, PriorityMonitor, sub.Priority())

	bus.Register(func(ev *Event[int], _ *Subscription[int]) { ev.Cancel() }, PriorityNormal, nil, "")
	bus.Dispatch("alice", 7)

	assert.Contains(t, buf.String(), "src=alice canceled=true value")
}
