package deck

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize concatenates the entry's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each
// field before joining them, so cosmetic edits in a deck file do not reset
// a card's scheduling state.
func Normalize(e Entry) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	// Joined with a newline so fields stay separated; "prompt"+"answer"
	// must not collide with "promptanswer".
	return strings.Join([]string{normalizePart(e.Prompt), normalizePart(e.Answer)}, "\n")
}

// Hash takes an entry, normalizes it, and returns its SHA-256 hash as a hex
// string. The hash is the entry's identity across re-scans.
func Hash(e Entry) string {
	normalized := Normalize(e)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
