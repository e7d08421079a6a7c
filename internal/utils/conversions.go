package utils

// ToStringSlice converts a decoded JSON claim into a string slice.
// A lone string becomes a one element slice, non-string items are skipped.
func ToStringSlice(value any) []string {
	stringSlice := make([]string, 0)
	switch v := value.(type) {
	case string:
		if v != "" {
			stringSlice = append(stringSlice, v)
		}
	case []string:
		stringSlice = append(stringSlice, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				stringSlice = append(stringSlice, s)
			}
		}
	}
	return stringSlice
}
