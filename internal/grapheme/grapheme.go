package grapheme

import (
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Code points allowed inside an emoji cluster beyond the symbol/modifier
// categories.
const (
	zeroWidthJoiner   = '\u200d' // joins multiple symbols into one glyph
	variationSelector = '\ufe0f' // requests emoji presentation
)

// The general categories that cover emoji pictographs, skin-tone and
// hair-style modifiers, and modifier letters.
var symbolCategories = []*unicode.RangeTable{unicode.Sk, unicode.Lm, unicode.So}

// Count returns the number of user-perceived characters (extended grapheme
// clusters) in s. This is the right notion of length for emoji and other
// composed characters, where code-point or byte counts overshoot.
func Count(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

// IsSingleEmoji reports whether s is exactly one user-perceived emoji
// character. The string must segment into a single grapheme cluster, and
// every code point in that cluster must be in category Sk, Lm or So, or be
// the zero-width joiner (U+200D) or variation selector-16 (U+FE0F).
//
// Flag emoji built from regional indicator pairs pass (regional indicators
// are category So); keycap sequences and tag-based flags do not, since
// digits and tag characters fall outside the allowed categories.
func IsSingleEmoji(s string) bool {
	// Reject malformed input outright: decoding would otherwise map invalid
	// bytes to U+FFFD, which is category So and would pass the allowlist.
	if !utf8.ValidString(s) {
		return false
	}

	if uniseg.GraphemeClusterCount(s) != 1 {
		return false
	}

	for _, r := range s {
		if unicode.In(r, symbolCategories...) {
			continue
		}
		if r == zeroWidthJoiner || r == variationSelector {
			continue
		}
		return false
	}

	return true
}
