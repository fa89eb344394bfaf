package models

// Decoding helpers for the loosely-typed documents the store hands back.
// Numeric fields may arrive as int32/int64/float64 depending on the driver.

func docString(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func docInt64(doc map[string]any, key string) int64 {
	switch v := doc[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func docStringMap(doc map[string]any, key string) map[string]string {
	out := make(map[string]string)
	raw, ok := doc[key].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func docStringSlice(doc map[string]any, key string) []string {
	var out []string
	switch raw := doc[key].(type) {
	case []any:
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, raw...)
	}
	return out
}
