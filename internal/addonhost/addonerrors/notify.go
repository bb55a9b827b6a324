package addonerrors

import (
	"addonhost/internal/events"
)

// Reporter publishes addon-lifecycle failures onto the shared event
// bus. The host's notify.Dispatcher (subscribed to the same bus,
// configured with its own rules/cooldowns) is what actually reaches
// Shoutrrr; this package only needs to know how to describe a failure
// as an Event, not how to deliver one.
type Reporter struct {
	bus *events.Bus
}

// NewReporter wraps bus. bus may be nil, in which case Report* calls
// are no-ops — useful for a host wired without operator notifications.
func NewReporter(bus *events.Bus) *Reporter {
	return &Reporter{bus: bus}
}

// ReportEnableFailure publishes an AddonEnableFailed event for addonID.
func (r *Reporter) ReportEnableFailure(addonID string, cause error) {
	r.publish(events.AddonEnableFailed, addonID, cause)
}

// ReportReloadFailure publishes an AddonReloadFailed event for addonID.
func (r *Reporter) ReportReloadFailure(addonID string, cause error) {
	r.publish(events.AddonReloadFailed, addonID, cause)
}

func (r *Reporter) publish(eventType events.EventType, addonID string, cause error) {
	if r.bus == nil {
		return
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	r.bus.Publish(events.Event{
		Type:     eventType,
		Severity: events.SeverityCritical,
		AddonID:  addonID,
		Message:  msg,
	})
}
