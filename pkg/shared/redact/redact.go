package redact

import (
	"encoding/json"
	"strings"
)

var sensitiveKeys = []string{"authorization", "cookie", "access_token", "id_token", "token", "signature", "apikey"}

// Map masks sensitive fields in a payload in place, recursing into nested
// maps and slices, and returns it for chaining. Raw feed payloads may carry
// signed URLs and session tokens that must not reach the store.
func Map(m map[string]any) map[string]any {
	for k, v := range m {
		if isSensitiveKey(k) {
			m[k] = "***"
			continue
		}
		vv := any(v)
		redactNode(&vv)
		m[k] = vv
	}
	return m
}

// JSON masks sensitive fields in a JSON string best-effort. Non-JSON input is
// returned unchanged.
func JSON(s string) string {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	redactNode(&v)
	b, err := json.Marshal(v)
	if err != nil {
		return s
	}
	return string(b)
}

func redactNode(n *any) {
	switch t := (*n).(type) {
	case map[string]any:
		Map(t)
	case []any:
		for i := range t {
			vv := any(t[i])
			redactNode(&vv)
			t[i] = vv
		}
	}
}

func isSensitiveKey(k string) bool {
	k = strings.ToLower(k)
	for _, s := range sensitiveKeys {
		if k == s {
			return true
		}
	}
	return false
}
