package addonstore

import (
	"encoding/base64"
	"encoding/json"
	"log"

	"addonhost/internal/addonhost"
)

func encodePermissions(groups []addonhost.PermissionGroup) string {
	if len(groups) == 0 {
		return ""
	}
	b, err := json.Marshal(groups)
	if err != nil {
		log.Printf("addonstore: failed to encode permissions: %v", err)
		return ""
	}
	return string(b)
}

func decodePermissions(raw string) []addonhost.PermissionGroup {
	if raw == "" {
		return nil
	}
	var groups []addonhost.PermissionGroup
	if err := json.Unmarshal([]byte(raw), &groups); err != nil {
		log.Printf("addonstore: failed to decode permissions: %v", err)
		return nil
	}
	return groups
}

func decodeSignature(sigBase64 string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(sigBase64)
}
