// Package ids maps human-facing identifiers such as "video_7" to the canonical
// zero-padded keys used in content file names.
package ids

import (
	"errors"
	"regexp"
	"strings"
)

// Identifier prefixes accepted by Normalize.
const (
	VideoPrefix     = "video"
	NarrativePrefix = "narrative"
)

// minWidth is the canonical key width for values below 100.
const minWidth = 2

// ErrInvalidIdentifier is returned when an identifier does not have the form <prefix>_<digits>.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var patterns = map[string]*regexp.Regexp{
	VideoPrefix:     regexp.MustCompile(`^video_([0-9]+)$`),
	NarrativePrefix: regexp.MustCompile(`^narrative_([0-9]+)$`),
}

// Normalize returns the canonical key for id, which must be exactly prefix + "_" + digits.
// The key is the digit run's decimal value, zero-padded to at least two characters:
// "video_7" -> "07", "video_010" -> "10", "video_123" -> "123".
func Normalize(id, prefix string) (string, error) {
	re, ok := patterns[prefix]
	if !ok {
		return "", ErrInvalidIdentifier
	}
	m := re.FindStringSubmatch(id)
	if m == nil {
		return "", ErrInvalidIdentifier
	}
	// Strip leading zeros textually so arbitrarily long digit runs never overflow.
	digits := strings.TrimLeft(m[1], "0")
	if len(digits) < minWidth {
		digits = strings.Repeat("0", minWidth-len(digits)) + digits
	}
	return digits, nil
}

// Video normalizes a "video_<n>" identifier.
func Video(id string) (string, error) {
	return Normalize(id, VideoPrefix)
}

// Narrative normalizes a "narrative_<n>" identifier.
func Narrative(id string) (string, error) {
	return Normalize(id, NarrativePrefix)
}
