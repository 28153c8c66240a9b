package util

import (
	"net/url"
	"sort"
	"strings"
)

// HideAPIKey obscures a secret for logging purposes, showing only the first and last few characters.
func HideAPIKey(apiKey string) string {
	if len(apiKey) > 8 {
		return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
	} else if len(apiKey) > 4 {
		return apiKey[:2] + "..." + apiKey[len(apiKey)-2:]
	} else if len(apiKey) > 2 {
		return apiKey[:1] + "..." + apiKey[len(apiKey)-1:]
	}
	return apiKey
}

// IsSensitiveField reports whether a form field carries a credential.
func IsSensitiveField(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	return strings.Contains(lower, "password") ||
		strings.Contains(lower, "ticket") ||
		strings.Contains(lower, "token") ||
		strings.Contains(lower, "secret")
}

// MaskSensitiveForm renders form values for logs with credentials obscured. Keys are sorted so
// log lines are stable. Passwords are replaced entirely.
func MaskSensitiveForm(form url.Values) string {
	if len(form) == 0 {
		return ""
	}
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range form[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			switch {
			case strings.Contains(strings.ToLower(k), "password"):
				sb.WriteString("***")
			case IsSensitiveField(k):
				sb.WriteString(HideAPIKey(v))
			default:
				sb.WriteString(v)
			}
		}
	}
	return sb.String()
}
