package stations

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// quoteReplacer unifies the apostrophe variants TfL and users mix freely
var quoteReplacer = strings.NewReplacer(
	"’", "'", // right single quotation mark
	"‘", "'", // left single quotation mark
	"‛", "'", // single high-reversed-9
	"′", "'", // prime
	"ʼ", "'", // modifier letter apostrophe
	"´", "'", // acute accent
	"`", "'",
)

// genericSuffix matches "Underground Station", optionally parenthesised
var genericSuffix = regexp.MustCompile(`(?i)\s*\(?\s*underground\s+station\s*\)?`)

// Normalize canonicalizes text for matching: lower case, diacritics folded,
// unified apostrophes, whitespace collapsed and trimmed. It is total and
// idempotent. Quotes are unified after folding because decomposition can
// produce them (U+1FFD decomposes to an acute accent).
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = foldDiacritics(s)
	s = quoteReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// CleanDisplayName strips the generic "Underground Station" phrase
func CleanDisplayName(text string) string {
	s := genericSuffix.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(s), " ")
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
