package textutil

import (
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	tagRe        = regexp.MustCompile(`<[^<]+?>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	rupeeCodeRe  = regexp.MustCompile(`\b(rs|Rs|RS)\.?\s+`)
)

// currencySymbols maps currency glyphs to ISO codes. Feed titles routinely mix
// the rupee sign with "Rs." spellings, so both paths funnel into "INR".
var currencySymbols = []struct {
	symbol      string
	replacement string
}{
	{"₹", "INR "},
	{"₨", "INR "},
	{"$", "USD "},
	{"€", "EUR "},
	{"£", "GBP "},
	{"¥", "JPY "},
	{"₩", "KRW "},
	{"₽", "RUB "},
}

// CleanHTML strips markup and entities from feed-supplied text and collapses
// whitespace into single spaces.
func CleanHTML(text string) string {
	text = tagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = norm.NFKC.String(text)
	return CollapseWhitespace(text)
}

// NormalizeCurrency replaces currency symbols and "Rs." style codes with ISO
// currency codes. The rupee text code is matched on word boundaries so words
// merely containing "rs" are left alone.
func NormalizeCurrency(text string) string {
	for _, c := range currencySymbols {
		text = strings.ReplaceAll(text, c.symbol, c.replacement)
	}
	text = rupeeCodeRe.ReplaceAllString(text, "INR ")
	return CollapseWhitespace(text)
}

// NormalizeTitle prepares a title for display and for title-based
// deduplication: entity unescape, currency normalization, whitespace collapse.
func NormalizeTitle(title string) string {
	title = html.UnescapeString(title)
	title = norm.NFKC.String(title)
	return NormalizeCurrency(title)
}

func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
