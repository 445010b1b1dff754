// Package slug turns display names into file-system and URL safe names.
package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make lowercases s, strips diacritics and joins runs of letters and
// digits with single dashes: "Été à Paris!" becomes "ete-a-paris".
func Make(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingDash = true
			continue
		}
		if pendingDash && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingDash = false
		b.WriteRune(r)
	}
	return b.String()
}

// Key returns a file name for s that is unique per exact input: the slug
// of s followed by the first eight hex digits of its SHA-256.
// "Trip/IMG 1.jpg" and "trip/img-1.jpg" share a slug but not a key.
func Key(s string) string {
	sum := sha256.Sum256([]byte(s))
	h := hex.EncodeToString(sum[:4])
	if m := Make(s); m != "" {
		return m + "-" + h
	}
	return h
}

// Set hands out unique slugs. A slug claimed twice gets a numeric suffix
// on the second and later claims: "paris", "paris-2", "paris-3".
type Set struct {
	claimed map[string]bool
}

// NewSet creates an empty set
func NewSet() *Set {
	return &Set{claimed: make(map[string]bool)}
}

// Claim reserves s, or the first free suffixed variant of s, and returns
// it together with whether s had to be changed.
func (u *Set) Claim(s string) (string, bool) {
	if !u.claimed[s] {
		u.claimed[s] = true
		return s, false
	}
	for i := 2; ; i++ {
		candidate := s + "-" + strconv.Itoa(i)
		if !u.claimed[candidate] {
			u.claimed[candidate] = true
			return candidate, true
		}
	}
}
