package tracing

import (
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

// allowedAttrKeys lists span attribute keys that are safe to export.
// Identifiers are fine; anything that could carry PII (names, emails,
// payloads) stays out of spans.
var allowedAttrKeys = map[string]struct{}{
	"http.method":      {},
	"http.route":       {},
	"http.status_code": {},
	"school_id":        {},
	"user_id":          {},
	"request_id":       {},
	"document_type":    {},
	"provider":         {},
	"tx_type":          {},
}

// SafeAttributes filters attributes down to the allowlist.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedAttrKeys[string(attr.Key)]; ok {
			out = append(out, attr)
		}
	}
	return out
}

// SafeError strips error messages down to the type so span events do not
// leak query text or payload fragments.
func SafeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 120 {
		msg = msg[:120]
	}
	return msg
}

// Int64Attr is a small helper for ID attributes.
func Int64Attr(key string, v int64) attribute.KeyValue {
	return attribute.String(key, strconv.FormatInt(v, 10))
}
