package shared

// ClonePayload deep-copies an event payload. Maps and slices are copied
// recursively; every other value is carried as is. Published events hand
// the clone to subscribers so later producer mutations cannot race.
func ClonePayload(payload map[string]interface{}) map[string]interface{} {
	if payload == nil {
		return nil
	}

	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return ClonePayload(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []float64:
		out := make([]float64, len(v))
		copy(out, v)
		return out
	case []int:
		out := make([]int, len(v))
		copy(out, v)
		return out
	default:
		return v
	}
}
