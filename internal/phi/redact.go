package phi

// Redact walks a value graph and replaces every pattern match in
// string leaves with a [REDACTED_<CATEGORY>] marker. Slices map
// element-wise, maps key-by-key with keys preserved, and non-string
// scalars pass through unchanged.
//
// Redact is idempotent: the markers themselves match no category.
// Inputs are expected to be JSON-shaped (map[string]any, []any,
// scalars), which cannot be cyclic; values of other types are returned
// untouched rather than traversed.
func Redact(v any) any {
	switch val := v.(type) {
	case string:
		return RedactString(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Redact(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Redact(elem)
		}
		return out
	default:
		return v
	}
}

// RedactString applies every category to a single string in scan order
func RedactString(s string) string {
	for _, cat := range categories {
		s = cat.pattern.ReplaceAllString(s, "[REDACTED_"+string(cat.fieldType)+"]")
	}
	return s
}
