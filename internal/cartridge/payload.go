package cartridge

import "fmt"

// Accessors for decoded JSON payloads. JSON numbers arrive as float64, and
// the admin console sends ids as either strings or numbers, so every
// accessor tolerates missing keys and mixed types.

// String returns the string at key, or "".
func (p Payload) String(key string) string {
	return p.StringOr(key, "")
}

// StringOr returns the string at key, or def when absent or not a string.
func (p Payload) StringOr(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Int returns the number at key as an int, or def.
func (p Payload) Int(key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// Float returns the number at key, parsing numeric strings too.
func (p Payload) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Bool returns the bool at key, or def.
func (p Payload) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Strings returns the list at key with every element rendered as a string,
// so orderings survive the number-vs-string ambiguity of JSON round-trips.
func (p Payload) Strings(key string) []string {
	list, ok := p[key].([]any)
	if !ok {
		// Already-typed slices show up from server-side callers.
		if typed, ok := p[key].([]string); ok {
			out := make([]string, len(typed))
			copy(out, typed)
			return out
		}
		return nil
	}
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = fmt.Sprint(v)
	}
	return out
}
