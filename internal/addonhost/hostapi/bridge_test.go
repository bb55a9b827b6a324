package hostapi

import (
	"context"
	"sync/atomic"
	"testing"

	"addonhost/internal/addonhost/hostlog"
	"addonhost/internal/events"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.lines = append(r.lines, "DEBUG:"+msg) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.lines = append(r.lines, "INFO:"+msg) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.lines = append(r.lines, "WARN:"+msg) }
func (r *recordingLogger) Error(msg string, args ...any) { r.lines = append(r.lines, "ERROR:"+msg) }

func TestGroupsDelegateToFunctionsUnchanged(t *testing.T) {
	fns := NewStubFunctions(events.NewBus())
	b := New("tracker", fns, hostlog.New("test"))

	got, err := b.Accounts.GetAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	m, ok := got.(map[string]any)
	if !ok || m["op"] != "accounts.getAll" {
		t.Fatalf("expected accounts.getAll echo, got %#v", got)
	}
}

func TestLoggerGroupPrefixesAddonID(t *testing.T) {
	rec := &recordingLogger{}
	b := New("tracker", NewStubFunctions(nil), rec)

	b.Logger.Info("hello")

	if len(rec.lines) != 1 || rec.lines[0] != "INFO:[tracker] hello" {
		t.Fatalf("expected prefixed log line, got %v", rec.lines)
	}
}

func TestLoggerGroupTraceRidesOnDebug(t *testing.T) {
	rec := &recordingLogger{}
	b := New("tracker", NewStubFunctions(nil), rec)

	b.Logger.Trace("deep detail")

	if len(rec.lines) != 1 || rec.lines[0] != "DEBUG:[tracker] TRACE deep detail" {
		t.Fatalf("unexpected trace line: %v", rec.lines)
	}
}

func TestEventsGroupSubscribesAndDelivers(t *testing.T) {
	bus := events.NewBus()
	b := New("tracker", NewStubFunctions(bus), hostlog.New("test"))

	var got atomic.Bool
	b.Events.Market.OnSyncStart(func(e events.Event) {
		got.Store(true)
	})

	bus.Publish(events.Event{Type: events.MarketSyncStart})

	if !got.Load() {
		t.Error("expected market.onSyncStart handler to fire")
	}
}

func TestBridgeCloseAutoUnlistensAllSubscriptions(t *testing.T) {
	bus := events.NewBus()
	b := New("tracker", NewStubFunctions(bus), hostlog.New("test"))

	var count atomic.Int32
	b.Events.Import.OnDrop(func(e events.Event) { count.Add(1) })
	b.Events.Portfolio.OnUpdateComplete(func(e events.Event) { count.Add(1) })

	bus.Publish(events.Event{Type: events.ImportDrop})
	bus.Publish(events.Event{Type: events.PortfolioUpdateComplete})

	b.Close()

	bus.Publish(events.Event{Type: events.ImportDrop})
	bus.Publish(events.Event{Type: events.PortfolioUpdateComplete})

	if count.Load() != 2 {
		t.Errorf("expected 2 deliveries before Close, got %d", count.Load())
	}
}

func TestBridgeCloseIsIdempotent(t *testing.T) {
	bus := events.NewBus()
	b := New("tracker", NewStubFunctions(bus), hostlog.New("test"))
	b.Events.Market.OnSyncComplete(func(e events.Event) {})

	b.Close()
	b.Close() // must not panic
}

func TestSubscribeWithoutBusPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when subscribing with no EventBus wired")
		}
	}()

	b := New("tracker", NewStubFunctions(nil), hostlog.New("test"))
	b.Events.Market.OnSyncStart(func(e events.Event) {})
}

func TestNavigationGroupDelegates(t *testing.T) {
	var routed string
	fns := NewStubFunctions(nil)
	fns.Navigate = func(ctx context.Context, route string) error {
		routed = route
		return nil
	}
	b := New("tracker", fns, hostlog.New("test"))

	if err := b.Navigation.Navigate(context.Background(), "/tracker/home"); err != nil {
		t.Fatal(err)
	}
	if routed != "/tracker/home" {
		t.Errorf("expected route to reach Functions.Navigate, got %q", routed)
	}
}
