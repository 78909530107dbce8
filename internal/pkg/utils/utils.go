package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// GenerateBatchID generates a correlation ID for one executed order batch.
func GenerateBatchID() string {
	return uuid.New().String()
}

// RandomHex generates a random hex string of n bytes.
func RandomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ParseInt safely converts string to int with a default value.
func ParseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

// IsNumeric checks if a string is numeric.
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// TruncateLink shortens a link for display in history listings.
func TruncateLink(link string, max int) string {
	if max <= 3 || len(link) <= max {
		return link
	}
	return link[:max-3] + "..."
}
