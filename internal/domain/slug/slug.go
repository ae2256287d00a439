// Package slug derives the uniqueName lookup key for restaurants.
package slug

import (
	"strings"
	"unicode"
)

// Suffix is appended to every slug. It is a fixed literal, so two names that
// normalise the same collide on the store's uniqueName index.
const Suffix = "0"

// Make trims and lowercases name, appends " "+Suffix and replaces every
// whitespace character with a hyphen.
//
//	Make("  Pizza Queen  ") == "pizza-queen-0"
func Make(name string) string {
	s := strings.ToLower(strings.TrimSpace(name)) + " " + Suffix
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '-'
		}
		return r
	}, s)
}
