package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeSplitsOnPunctuation(t *testing.T) {
	got := Tokenize("Acme/fast-JSON parser, v2.0 (beta)")
	assert.Equal(t, []string{"acme", "fast", "json", "parser", "v2", "beta"}, got)
}

func TestTokenizeDropsSingleCharacters(t *testing.T) {
	assert.Equal(t, []string{"ab"}, Tokenize("a b ab c"))
	assert.Empty(t, Tokenize(""))
}

func TestTokenizeWithoutStopWords(t *testing.T) {
	got := TokenizeWithoutStopWords("The fastest router for the web")
	assert.Equal(t, []string{"fastest", "router", "web"}, got)
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("go"))
	assert.False(t, IsStopWord("python"))
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a \n b\t\tc "))
}
