package grapheme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSingleEmoji(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		// Single-code-point symbols
		{"simple emoji", "👍", true},
		{"pictograph", "🚀", true},
		{"other symbol non-emoji", "™", true},
		{"heart without selector", "❤", true},

		// Composed sequences that stay one cluster
		{"emoji with skin tone modifier", "👍🏽", true},
		{"heart with variation selector", "❤️", true},
		{"zwj sequence", "👩‍🚀", true},
		{"family zwj sequence", "👨‍👩‍👧‍👦", true},

		// Regional indicator pairs are category So, so flags pass
		{"flag from regional indicators", "🇺🇸", true},

		// Outside the allowed categories
		{"ascii letter", "a", false},
		{"ascii digit", "7", false},
		{"accented letter", "é", false},
		{"currency symbol", "€", false},
		{"keycap sequence", "1️⃣", false},
		{"tag-based flag", "🏴󠁧󠁢󠁳󠁣󠁴󠁿", false},

		// Cluster-count gate
		{"empty string", "", false},
		{"two letters", "ab", false},
		{"two emoji", "👍👍", false},
		{"emoji followed by letter", "👍a", false},
		{"emoji followed by space", "👍 ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSingleEmoji(tt.input), "input %q", tt.input)
		})
	}
}

func TestIsSingleEmojiJoinerAndSelectorRules(t *testing.T) {
	// A lone joiner or selector is one cluster of allowed code points, so it
	// passes; a letter anywhere in the cluster rejects the whole string.
	assert.True(t, IsSingleEmoji("\u200d"))
	assert.True(t, IsSingleEmoji("\ufe0f"))
	assert.False(t, IsSingleEmoji("a\u200d"))
	assert.False(t, IsSingleEmoji("e\ufe0f"))
}

func TestIsSingleEmojiRejectsInvalidUTF8(t *testing.T) {
	assert.False(t, IsSingleEmoji("\xff"))
	assert.False(t, IsSingleEmoji("\xf0\x9f\x91")) // truncated 4-byte sequence
}

func TestCount(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},
		{"ab", 2},
		{"👍", 1},
		{"👍🏽", 1},
		{"👨‍👩‍👧‍👦", 1},
		{"héllo", 5},
		{"👍👍", 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Count(tt.input), "input %q", tt.input)
	}
}
