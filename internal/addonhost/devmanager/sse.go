package devmanager

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"addonhost/internal/addonhost"
)

// sseAddonChanged is the payload shape expected on the push channel's
// "addon-changed" events.
type sseAddonChanged struct {
	AddonID string `json:"addonId"`
}

// startPushWatch subscribes to ds's optional server-sent-events
// endpoint as an alternative to polling. Any failure — connection
// refused, non-2xx, a dropped stream — is silent: polling remains the
// fallback. The watch is cancelled when the addon is unloaded or the
// Manager stops.
func (m *Manager) startPushWatch(ds *addonhost.DevServer) {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if dl, ok := m.loaded[ds.AddonID]; ok {
		dl.watchCancel = cancel
	} else {
		cancel()
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	go m.watchSSE(ctx, ds.AddonID, ds.BaseURL)
}

func (m *Manager) watchSSE(ctx context.Context, addonID, baseURL string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/addon-updates", nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := m.streamClient.Do(req)
	if err != nil {
		return // silent: polling is the fallback
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	var eventKind string
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			eventKind = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if eventKind == "addon-changed" {
				var payload sseAddonChanged
				if json.Unmarshal([]byte(data), &payload) == nil && payload.AddonID != "" && m.cfg.AutoReload {
					go m.reload(payload.AddonID)
				}
			}
		case line == "":
			eventKind = ""
		}
	}
}
