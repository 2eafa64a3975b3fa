package services

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	slugAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	slugSuffixLen = 7
)

// Slugify lowercases s, strips accents and joins alphanumeric runs with "-"
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func randomSuffix() string {
	buf := make([]byte, slugSuffixLen)
	max := big.NewInt(int64(len(slugAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		buf[i] = slugAlphabet[n.Int64()]
	}
	return string(buf)
}

// newSlug returns slugify(title) + "-" + 7 random [a-z0-9]
func newSlug(title string) string {
	base := Slugify(title)
	if base == "" {
		base = "article"
	}
	return base + "-" + randomSuffix()
}
