package sanitizer

import "strings"

// FilterEmpty removes whitespace-only entries to prevent empty form fields from polluting data.
func FilterEmpty(slice []string) []string {
	result := make([]string, 0)
	for _, item := range slice {
		if strings.TrimSpace(item) != "" {
			result = append(result, item)
		}
	}
	return result
}

// DeduplicateStrings preserves first occurrence order to maintain user intent.
func DeduplicateStrings(slice []string) []string {
	seen := make(map[string]struct{}, len(slice))
	result := make([]string, 0, len(slice))
	for _, item := range slice {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}

func TrimStringSlice(slice []string) []string {
	result := make([]string, len(slice))
	for i, item := range slice {
		result[i] = strings.TrimSpace(item)
	}
	return result
}

func ToLowerStringSlice(slice []string) []string {
	result := make([]string, len(slice))
	for i, item := range slice {
		result[i] = strings.ToLower(item)
	}
	return result
}

// CleanStringSlice applies standard form data cleanup pipeline.
func CleanStringSlice(slice []string) []string {
	return DeduplicateStrings(FilterEmpty(TrimStringSlice(slice)))
}
