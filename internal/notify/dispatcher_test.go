package notify

import (
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"addonhost/internal/events"

	_ "modernc.org/sqlite"
)

// mockSender records calls for assertion.
type mockSender struct {
	mu       sync.Mutex
	calls    []string
	failNext bool
}

func (m *mockSender) Send(url, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, message)
	if m.failNext {
		m.failNext = false
		return fmt.Errorf("mock send error")
	}
	return nil
}

func (m *mockSender) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// setupDispatcherTest creates an in-memory DB, bus, mock sender, and dispatcher.
func setupDispatcherTest(t *testing.T) (*sql.DB, *events.Bus, *mockSender, *Dispatcher) {
	t.Helper()
	db := setupTestDB(t)
	bus := events.NewBus()
	sender := &mockSender{}
	d := NewDispatcher(db, bus, sender)
	return db, bus, sender, d
}

func TestDispatcherSendsOnEnabledService(t *testing.T) {
	db, bus, sender, d := setupDispatcherTest(t)

	CreateService(db, &NotificationService{
		Name:        "test",
		ServiceType: "generic",
		ConfigJSON:  `{"shoutrrr_url":"generic://example.com"}`,
		Enabled:     true,
	})

	d.Start()
	defer d.Stop()

	bus.Publish(events.Event{
		Type:     events.AddonEnableFailed,
		Severity: events.SeverityCritical,
		AddonID:  "node1",
		Message:  "addon failed to load",
	})

	// Give the async goroutine time to process
	time.Sleep(100 * time.Millisecond)

	if sender.callCount() != 1 {
		t.Errorf("expected 1 send, got %d", sender.callCount())
	}
}

func TestDispatcherSkipsDisabledService(t *testing.T) {
	db, bus, sender, d := setupDispatcherTest(t)

	CreateService(db, &NotificationService{
		Name:        "off",
		ServiceType: "generic",
		ConfigJSON:  `{"shoutrrr_url":"generic://example.com"}`,
		Enabled:     false,
	})

	d.Start()
	defer d.Stop()

	bus.Publish(events.Event{
		Type:     events.AddonReloadFailed,
		Severity: events.SeverityCritical,
		Message:  "addon failed to reload",
	})

	time.Sleep(100 * time.Millisecond)

	if sender.callCount() != 0 {
		t.Errorf("expected 0 sends for disabled service, got %d", sender.callCount())
	}
}

func TestDispatcherEnforcesCooldown(t *testing.T) {
	db, bus, sender, d := setupDispatcherTest(t)

	svcID, _ := CreateService(db, &NotificationService{
		Name:        "cooldown-test",
		ServiceType: "generic",
		ConfigJSON:  `{"shoutrrr_url":"generic://example.com"}`,
		Enabled:     true,
	})

	// Set a 10-second cooldown for addon_enable_failed
	UpsertEventRule(db, &EventRule{
		ServiceID: svcID,
		EventType: "addon_enable_failed",
		Enabled:   true,
		Cooldown:  10,
	})

	d.Start()
	defer d.Stop()

	evt := events.Event{
		Type:     events.AddonEnableFailed,
		Severity: events.SeverityCritical,
		Message:  "Critical SMART error",
	}

	bus.Publish(evt)
	time.Sleep(50 * time.Millisecond)

	bus.Publish(evt) // should be throttled
	time.Sleep(50 * time.Millisecond)

	if sender.callCount() != 1 {
		t.Errorf("expected 1 send (second throttled), got %d", sender.callCount())
	}
}

func TestDispatcherDisabledEventRule(t *testing.T) {
	db, bus, sender, d := setupDispatcherTest(t)

	svcID, _ := CreateService(db, &NotificationService{
		Name:        "rule-disabled",
		ServiceType: "generic",
		ConfigJSON:  `{"shoutrrr_url":"generic://example.com"}`,
		Enabled:     true,
	})

	UpsertEventRule(db, &EventRule{
		ServiceID: svcID,
		EventType: "addon_enable_failed",
		Enabled:   false,
	})

	d.Start()
	defer d.Stop()

	bus.Publish(events.Event{
		Type:     events.AddonEnableFailed,
		Severity: events.SeverityCritical,
		Message:  "Should be blocked by rule",
	})

	time.Sleep(100 * time.Millisecond)

	if sender.callCount() != 0 {
		t.Errorf("expected 0 sends (rule disabled), got %d", sender.callCount())
	}
}

func TestDispatcherRecordsHistory(t *testing.T) {
	db, bus, _, d := setupDispatcherTest(t)

	CreateService(db, &NotificationService{
		Name:        "history-test",
		ServiceType: "generic",
		ConfigJSON:  `{"shoutrrr_url":"generic://example.com"}`,
		Enabled:     true,
	})

	d.Start()
	defer d.Stop()

	bus.Publish(events.Event{
		Type:     events.AddonEnableFailed,
		Severity: events.SeverityCritical,
		AddonID:  "srv1",
		Message:  "Disk failure imminent",
	})

	time.Sleep(100 * time.Millisecond)

	history, err := RecentHistory(db, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(history))
	}
	if history[0].Status != "sent" {
		t.Errorf("status = %q, want %q", history[0].Status, "sent")
	}
}

func TestDispatcherRecordsFailure(t *testing.T) {
	db, bus, sender, d := setupDispatcherTest(t)

	CreateService(db, &NotificationService{
		Name:        "fail-test",
		ServiceType: "generic",
		ConfigJSON:  `{"shoutrrr_url":"generic://example.com"}`,
		Enabled:     true,
	})

	sender.failNext = true

	d.Start()
	defer d.Stop()

	bus.Publish(events.Event{
		Type:     events.AddonEnableFailed,
		Severity: events.SeverityCritical,
		Message:  "Will fail to send",
	})

	time.Sleep(100 * time.Millisecond)

	history, _ := RecentHistory(db, 10)
	if len(history) != 1 {
		t.Fatalf("expected 1 record, got %d", len(history))
	}
	if history[0].Status != "failed" {
		t.Errorf("status = %q, want %q", history[0].Status, "failed")
	}
	if history[0].ErrorMessage == "" {
		t.Error("expected error message on failure")
	}
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name string
		e    events.Event
		want string
	}{
		{
			name: "with addon id",
			e:    events.Event{Severity: events.SeverityCritical, AddonID: "node1", Message: "disk bad"},
			want: "[critical] [node1] disk bad",
		},
		{
			name: "without addon id",
			e:    events.Event{Severity: events.SeverityWarning, Message: "temp high"},
			want: "[warning] temp high",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMessage(tt.e)
			if got != tt.want {
				t.Errorf("formatMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Verify Stop() drains pending events.
func TestDispatcherStopDrains(t *testing.T) {
	db, bus, sender, d := setupDispatcherTest(t)

	CreateService(db, &NotificationService{
		Name:        "drain-test",
		ServiceType: "generic",
		ConfigJSON:  `{"shoutrrr_url":"generic://example.com"}`,
		Enabled:     true,
	})

	d.Start()

	var published atomic.Int32
	for range 5 {
		bus.Publish(events.Event{
			Type:     events.AddonReloadFailed,
			Severity: events.SeverityWarning,
			Message:  "test",
		})
		published.Add(1)
	}

	d.Stop()

	// All published events should have been processed
	if sender.callCount() != int(published.Load()) {
		t.Errorf("expected %d dispatches after stop/drain, got %d", published.Load(), sender.callCount())
	}
}
