// Package posting models one lead on the listing page and the text
// heuristics that identify it.
package posting

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"go-outreach-automation/internal/page"
)

// Posting is materialized fresh on every listing-page load. Node is only
// valid for that load and is never persisted.
type Posting struct {
	ID       string
	Category string
	Node     page.Node
}

// Actionable reports whether an identifier was extracted.
func (p Posting) Actionable() bool {
	return p.ID != ""
}

// "№" optionally followed by whitespace (including no-break space) and a digit run.
var idPattern = regexp.MustCompile(`№[\s\p{Zs}]*([0-9]+)`)

// ExtractID returns the digits following the first "№" marker in text.
// Leading zeros are kept as-is.
func ExtractID(text string) (string, bool) {
	m := idPattern.FindStringSubmatch(Normalize(text))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Category returns the first label, in configured order, contained in text.
func Category(text string, labels []string) (string, bool) {
	text = Normalize(text)
	for _, label := range labels {
		if label == "" {
			continue
		}
		if strings.Contains(text, Normalize(label)) {
			return label, true
		}
	}
	return "", false
}

// ContainsAny reports whether text contains one of the markers.
func ContainsAny(text string, markers []string) bool {
	text = Normalize(text)
	for _, m := range markers {
		if m != "" && strings.Contains(text, Normalize(m)) {
			return true
		}
	}
	return false
}

// Normalize puts s into NFC so that composed and decomposed Cyrillic
// (й, ё) compare equal.
func Normalize(s string) string {
	return norm.NFC.String(s)
}
