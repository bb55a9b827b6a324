package notify

import (
	"database/sql"
	"fmt"
	"log"
)

// Migrate creates every table the notify package owns: the base
// service/history tables plus the per-service rule extensions. This
// package shares no schema bootstrap with any other host package — it
// is self-contained and only needs a *sql.DB handle.
func Migrate(db *sql.DB) error {
	log.Println("🔔 Running migration: notification tables")

	statements := []struct {
		label string
		sql   string
	}{
		{"notification_settings", `
			CREATE TABLE IF NOT EXISTS notification_settings (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				name            TEXT    NOT NULL,
				service_type    TEXT    NOT NULL,
				config_json     TEXT    NOT NULL,
				enabled         INTEGER DEFAULT 1,
				created_at      DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at      DATETIME DEFAULT CURRENT_TIMESTAMP
			);`},
		{"notification_settings indexes", `
			CREATE INDEX IF NOT EXISTS idx_notif_enabled ON notification_settings(enabled);
			CREATE INDEX IF NOT EXISTS idx_notif_service ON notification_settings(service_type);`},

		{"notification_history", `
			CREATE TABLE IF NOT EXISTS notification_history (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				setting_id      INTEGER,
				event_type      TEXT    NOT NULL,
				addon_id        TEXT,
				message         TEXT    NOT NULL,
				status          TEXT    NOT NULL DEFAULT 'pending',
				error_message   TEXT,
				sent_at         DATETIME,
				created_at      DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (setting_id) REFERENCES notification_settings(id) ON DELETE SET NULL
			);`},
		{"notification_history indexes", `
			CREATE INDEX IF NOT EXISTS idx_notif_hist_setting ON notification_history(setting_id);
			CREATE INDEX IF NOT EXISTS idx_notif_hist_status  ON notification_history(status);
			CREATE INDEX IF NOT EXISTS idx_notif_hist_created ON notification_history(created_at);`},

		// Per-event-type rules for each notification service
		{"notification_event_rules", `
			CREATE TABLE IF NOT EXISTS notification_event_rules (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				service_id    INTEGER NOT NULL,
				event_type    TEXT    NOT NULL,
				enabled       INTEGER DEFAULT 1,
				cooldown_secs INTEGER DEFAULT 300,
				UNIQUE(service_id, event_type),
				FOREIGN KEY (service_id) REFERENCES notification_settings(id) ON DELETE CASCADE
			);`},
		{"notification_event_rules indexes", `
			CREATE INDEX IF NOT EXISTS idx_notif_rules_service ON notification_event_rules(service_id);`},
	}

	for _, s := range statements {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("notification migration failed at [%s]: %w", s.label, err)
		}
		log.Printf("  ✓ %s", s.label)
	}

	log.Println("🔔 Migration completed: Notification extensions ready")
	return nil
}
