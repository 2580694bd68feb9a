package filter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxNoiseLength is the longest bubble text that is discarded outright.
const MaxNoiseLength = 5

var (
	clockRegex    = regexp.MustCompile(`^\d{1,2}[:.]\d{2}(:\d{2})?$`)
	numericDate   = regexp.MustCompile(`^\d{1,2}[./-]\d{1,2}([./-]\d{2,4})?(,?\s+\d{1,2}:\d{2})?$`)
	isoDateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	wordDateRegex = regexp.MustCompile(`(?i)^\d{1,2}\s+(января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря|янв|фев|мар|апр|июн|июл|авг|сен|окт|ноя|дек)\.?(\s+\d{4})?(\s*г\.?)?(,?\s+(в\s+)?\d{1,2}:\d{2})?$`)
	relativeRegex = regexp.MustCompile(`(?i)^(сегодня|вчера|позавчера|today|yesterday)(,?\s+(в\s+)?\d{1,2}:\d{2})?$`)
)

// IsTimestamp reports whether s looks like a clock time or a date label
// rendered between chat messages.
func IsTimestamp(s string) bool {
	s = strings.TrimSpace(s)
	return clockRegex.MatchString(s) ||
		numericDate.MatchString(s) ||
		isoDateRegex.MatchString(s) ||
		wordDateRegex.MatchString(s) ||
		relativeRegex.MatchString(s)
}

// IsMessage reports whether a rendered chat bubble carries real message
// text: longer than MaxNoiseLength and not a time or date label.
func IsMessage(s string) bool {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxNoiseLength {
		return false
	}
	return !IsTimestamp(s)
}
