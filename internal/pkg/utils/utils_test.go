package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomHex(t *testing.T) {
	a := RandomHex(16)
	b := RandomHex(16)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 42, ParseInt("42", 0))
	assert.Equal(t, 42, ParseInt(" 42 ", 0))
	assert.Equal(t, 7, ParseInt("nope", 7))
	assert.Equal(t, 7, ParseInt("", 7))
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric("12345"))
	assert.True(t, IsNumeric(" 42 "))
	assert.False(t, IsNumeric(""))
	assert.False(t, IsNumeric("-5"))
	assert.False(t, IsNumeric("12a"))
}

func TestTruncateLink(t *testing.T) {
	assert.Equal(t, "short", TruncateLink("short", 20))
	assert.Equal(t, "https://exa...", TruncateLink("https://example.com/post/123", 14))
	assert.Equal(t, "abc", TruncateLink("abc", 3))
}
