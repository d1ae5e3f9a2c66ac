package novelty

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/npatel023/tutorgraph/internal/generation"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "What Is A Pointer?", "what is a pointer"},
		{"strips punctuation", "2 + 2 = 4!", "2 2 4"},
		{"collapses whitespace", "a  b\t\nc", "a b c"},
		{"trims edges", "  hello  ", "hello"},
		{"empty", "", ""},
		{"punctuation only", "?!...", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestFingerprint_EquivalentTextsCollide(t *testing.T) {
	a := Fingerprint("What is a slice header?")
	b := Fingerprint("what   is a slice header")
	c := Fingerprint("WHAT IS A SLICE HEADER?!")
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestFingerprint_DistinctTextsDiffer(t *testing.T) {
	a := Fingerprint("What is a slice header?")
	b := Fingerprint("What is a map header?")
	assert.NotEqual(t, a, b)
}

func TestFingerprint_IsHexSHA256(t *testing.T) {
	fp := Fingerprint("anything")
	assert.Len(t, fp, 64)
}

func TestItemFingerprint_ChoicesDistinguishItems(t *testing.T) {
	a := &generation.Item{
		ItemType: generation.TypeMultipleChoice,
		Prompt:   "Which of these is a Go keyword?",
		Choices:  []string{"go", "async", "yield"},
	}
	b := &generation.Item{
		ItemType: generation.TypeMultipleChoice,
		Prompt:   "Which of these is a Go keyword?",
		Choices:  []string{"defer", "await", "virtual"},
	}
	assert.NotEqual(t, ItemFingerprint(a), ItemFingerprint(b))
}

func TestItemFingerprint_ReorderedChoicesCollide(t *testing.T) {
	a := &generation.Item{
		ItemType: generation.TypeOrdering,
		Prompt:   "Order the stages of a request.",
		Choices:  []string{"route", "handle", "respond"},
	}
	b := &generation.Item{
		ItemType: generation.TypeOrdering,
		Prompt:   "Order the stages of a request.",
		Choices:  []string{"respond", "route", "handle"},
	}
	assert.Equal(t, ItemFingerprint(a), ItemFingerprint(b))
}

func TestItemFingerprint_NoChoicesMatchesPromptHash(t *testing.T) {
	item := &generation.Item{
		ItemType: generation.TypeShortAnswer,
		Prompt:   "What does cap return for a nil slice?",
	}
	assert.Equal(t, Fingerprint(item.Prompt), ItemFingerprint(item))
}
