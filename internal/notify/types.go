package notify

import "time"

// NotificationService is a configured Shoutrrr destination. Stored in
// the notification_settings table.
type NotificationService struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ServiceType string    `json:"service_type"`
	ConfigJSON  string    `json:"config_json"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventRule controls per-event-type notification behaviour for a
// service: whether it fires at all, and how often. The addon host
// raises exactly two event types (addon_enable_failed,
// addon_reload_failed) and each can want its own cooldown, which is
// what this table exists for.
type EventRule struct {
	ID        int64  `json:"id"`
	ServiceID int64  `json:"service_id"`
	EventType string `json:"event_type"`
	Enabled   bool   `json:"enabled"`
	Cooldown  int    `json:"cooldown_secs"` // minimum seconds between repeated alerts
}

// NotificationRecord is a row from notification_history.
type NotificationRecord struct {
	ID           int64     `json:"id"`
	SettingID    int64     `json:"setting_id"`
	EventType    string    `json:"event_type"`
	AddonID      string    `json:"addon_id"`
	Message      string    `json:"message"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	SentAt       time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
