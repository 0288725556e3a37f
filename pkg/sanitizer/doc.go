// Package sanitizer normalises user supplied listing, profile and message data
// before validation and storage.
//
// All functions are idempotent and handle invalid input by returning an empty
// value rather than an error; validators decide whether empty is acceptable.
//
// Normalisation includes:
//   - Phone numbers: E.164 (+[country][number]), empty when not a valid number
//   - Free text: control characters and markup removed, whitespace collapsed
//   - URLs: https only, lowercase host, tracking parameters dropped
//   - Slices: duplicates and empty values removed after normalisation
//   - Cities: title case so lookups and listings agree
package sanitizer
