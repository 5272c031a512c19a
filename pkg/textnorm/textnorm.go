// Package textnorm cleans text pulled out of static HTML exports so it can be
// stored as a block attribute.
//
// Exports produced by site builders tend to carry stray markup, hard line
// breaks, invisible control characters and UTF-8 text that was decoded as
// Windows-1252 somewhere along the way ("â€™" instead of "’"). Normalize
// removes all of those in a fixed order.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	// tagRegex matches a single markup tag.
	tagRegex = regexp.MustCompile(`<[^>]*>`)

	// controlRegex matches C0 control characters and DEL. TAB, LF and CR are
	// left alone; they are whitespace and collapse to a space later.
	controlRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	// whitespaceRegex matches runs of whitespace.
	whitespaceRegex = regexp.MustCompile(`\s+`)

	lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

	mojibake = strings.NewReplacer(repairPairs()...)
)

// Repair is a known misdecoded sequence and its correct replacement.
type Repair struct {
	Broken string
	Fixed  string
}

// Repairs lists the misdecoded sequences Normalize corrects. The table is
// deduplicated: every Broken value appears once.
var Repairs = []Repair{
	{Broken: "â€™", Fixed: "'"},      // right single quote
	{Broken: "â€œ", Fixed: `"`},      // left double quote
	{Broken: "â€\u009d", Fixed: `"`}, // right double quote
	{Broken: "â€?", Fixed: `"`},      // right double quote, lossy export
	{Broken: "â€“", Fixed: "–"},      // en dash
	{Broken: "â€”", Fixed: "—"},      // em dash
}

func repairPairs() []string {
	pairs := make([]string, 0, len(Repairs)*2)
	for _, r := range Repairs {
		pairs = append(pairs, r.Broken, r.Fixed)
	}
	return pairs
}

// Normalize returns raw with markup removed, whitespace collapsed and known
// encoding artifacts repaired. Invalid UTF-8 becomes U+FFFD. It never fails; input that is empty or only
// markup and whitespace yields "".
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	text := StripTags(strings.ToValidUTF8(raw, "\uFFFD"))
	text = lineBreaks.Replace(text)
	text = controlRegex.ReplaceAllString(text, "")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	return mojibake.Replace(text)
}

// StripTags removes markup tags from s. A "<" with no closing ">" after it is
// treated as text and kept.
func StripTags(s string) string {
	return tagRegex.ReplaceAllString(s, "")
}

// RepairEncoding replaces only the misdecoded sequences in s, leaving
// whitespace and markup untouched.
func RepairEncoding(s string) string {
	return mojibake.Replace(s)
}
