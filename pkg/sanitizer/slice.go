package sanitizer

import "slices"

// NormalizeEach applies fn to every item, then drops empty results and
// duplicates while keeping first-seen order. Never returns nil.
func NormalizeEach(items []string, fn func(string) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := fn(item); v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func NormalizeAmenities(amenities []string) []string {
	return NormalizeEach(amenities, NormalizeAmenity)
}

func NormalizeImageURLs(urls []string) []string {
	return NormalizeEach(urls, SanitizeURL)
}
