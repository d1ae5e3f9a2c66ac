package novelty

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"unicode"

	"github.com/npatel023/tutorgraph/internal/generation"
)

// Fingerprint derives the duplicate-detection hash for generated
// content: SHA-256 over the normalized text, hex encoded. Two prompts
// that differ only in case, punctuation, or spacing collide.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// ItemFingerprint derives the hash for a generated item from all the
// text the learner sees: the prompt plus the choice list. Items that
// pose the same question over different options are distinct. Choices
// are sorted first so the same set in a reshuffled order still counts
// as a repeat. The answer and explanation are left out: an item is the
// question it asks, not the wording of its solution.
func ItemFingerprint(item *generation.Item) string {
	choices := slices.Clone(item.Choices)
	slices.Sort(choices)

	parts := make([]string, 0, 1+len(choices))
	parts = append(parts, item.Prompt)
	parts = append(parts, choices...)
	return Fingerprint(strings.Join(parts, "\n"))
}

// Normalize lowercases, strips punctuation, and collapses runs of
// whitespace to single spaces.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// dropped
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}

	return b.String()
}
