package sanitizer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// TrimAndNormalize trims s and collapses every whitespace run to one space.
func TrimAndNormalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeCity title-cases the city so "LEEDS" and "leeds" are stored alike.
func NormalizeCity(city string) string {
	return titleCaser.String(SanitizeLine(city))
}

func NormalizeAmenity(amenity string) string {
	return strings.ToLower(SanitizeLine(amenity))
}
