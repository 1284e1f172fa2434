package service

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	angleBracketPattern = regexp.MustCompile(`[<>]`)
	jsSchemePattern     = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)on\w+\s*=`)
	eventHandlerKey     = regexp.MustCompile(`(?i)^on\w+$`)
)

// SanitizePayload strips unsafe content from untrusted decoded JSON before
// it is persisted or displayed. String leaves lose angle brackets,
// javascript: scheme substrings and inline on<word>= handler fragments, and
// are trimmed. Numbers and booleans pass through. Objects and arrays are
// sanitized element-wise. Anything else cannot be trusted downstream and is
// replaced with an empty object. Defense in depth against stored XSS; this
// does not replace schema validation.
func SanitizePayload(value any) any {
	switch v := value.(type) {
	case string:
		return sanitizeString(v)
	case float64, bool:
		return v
	case json.Number:
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			// An object entry named like an inline event handler is a
			// key=value injection vector once rendered; drop it whole.
			if eventHandlerKey.MatchString(key) {
				continue
			}
			out[sanitizeString(key)] = SanitizePayload(elem)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = SanitizePayload(elem)
		}
		return out
	default:
		return map[string]any{}
	}
}

// SanitizeJSON decodes raw JSON, sanitizes it recursively and re-encodes it.
func SanitizeJSON(raw []byte) (json.RawMessage, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}

	return json.Marshal(SanitizePayload(value))
}

func sanitizeString(s string) string {
	s = angleBracketPattern.ReplaceAllString(s, "")
	s = jsSchemePattern.ReplaceAllString(s, "")
	s = eventHandlerPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
