package notification

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeVAPIDKey converts a base64url-encoded VAPID key into its raw byte
// form, repairing missing padding the way browser clients do before handing
// the key to the platform subscribe call.
func DecodeVAPIDKey(key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("empty VAPID key")
	}
	padding := strings.Repeat("=", (4-len(key)%4)%4)
	normalized := strings.NewReplacer("-", "+", "_", "/").Replace(key + padding)

	raw, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to decode VAPID key: %w", err)
	}
	return raw, nil
}
