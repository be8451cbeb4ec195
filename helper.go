package flatconf

import "fmt"

// normalizeRaw converts a raw mapping of any supported shape into a
// map[string]any. nil input yields nil. Keys must be strings or
// fmt.Stringers; anything else fails with ErrInvalidKeyType.
func normalizeRaw(raw any) (map[string]any, error) {
	switch m := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return m, nil
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			s, err := stringifyKey(k)
			if err != nil {
				return nil, err
			}
			out[s] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot use %T as raw mapping", ErrCoercion, raw)
	}
}

// stringifyKey coerces a mapping key to a string. Only strings and
// fmt.Stringers are key-shaped; everything else is an InvalidKeyType failure.
func stringifyKey(key any) (string, error) {
	switch k := key.(type) {
	case string:
		return k, nil
	case fmt.Stringer:
		return k.String(), nil
	default:
		return "", invalidKeyError(key)
	}
}

// flattenMap converts a nested map[string]any into a flat map whose keys join
// the nesting path with sep.
func flattenMap(nested map[string]any, prefix, sep string) map[string]any {
	flat := make(map[string]any)

	for key, value := range nested {
		path := key
		if prefix != "" {
			path = prefix + sep + key
		}

		if subMap, isMap := value.(map[string]any); isMap {
			for subPath, subValue := range flattenMap(subMap, path, sep) {
				flat[subPath] = subValue
			}
		} else {
			flat[path] = value
		}
	}

	return flat
}
