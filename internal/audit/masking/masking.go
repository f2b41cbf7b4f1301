package masking

import "strings"

const maskToken = "****"

var sensitiveKeys = map[string]struct{}{
	"server_key":    {},
	"signature_key": {},
	"secret":        {},
	"token":         {},
	"api_key":       {},
	"authorization": {},
}

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}

	return prefix + maskToken + remainder[len(remainder)-4:]
}

// MaskPayload returns a copy of the input with values under sensitive keys
// redacted. Non-sensitive values pass through so webhook payloads stay
// debuggable in the audit trail.
func MaskPayload(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(trimmedKey, value)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case string:
		if isSensitiveKey(key) {
			return MaskSecret(cast)
		}
		return cast
	case map[string]any:
		return MaskPayload(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(key, item))
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	lowered := strings.ToLower(key)
	if _, ok := sensitiveKeys[lowered]; ok {
		return true
	}
	return strings.Contains(lowered, "password") || strings.Contains(lowered, "secret")
}

func splitPrefix(value string) (string, string) {
	lastUnderscore := strings.LastIndex(value, "_")
	if lastUnderscore == -1 || lastUnderscore == len(value)-1 {
		return "", value
	}
	return value[:lastUnderscore+1], value[lastUnderscore+1:]
}
