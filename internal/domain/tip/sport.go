package tip

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sport enumerates the modalities tracked by the site.
type Sport string

const (
	SportFutebol  Sport = "futebol"
	SportBasquete Sport = "basquete"
	SportTenis    Sport = "tenis"
	SportEsports  Sport = "esports"
)

var AllSports = map[Sport]struct{}{
	SportFutebol:  {},
	SportBasquete: {},
	SportTenis:    {},
	SportEsports:  {},
}

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeToken lowercases and strips diacritics so that upstream free text
// ("Vitória", "VITORIA", "vitoria") compares equal.
func NormalizeToken(raw string) string {
	folded, _, err := transform.String(diacriticFolder, raw)
	if err != nil {
		folded = raw
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// DetectSport maps a free-text signal to a sport. Rule order matters: the
// prefixes are not disjoint, so esports is tested before the rest.
func DetectSport(raw string) (Sport, bool) {
	value := NormalizeToken(raw)
	if value == "" {
		return "", false
	}

	switch {
	case strings.Contains(value, "e-sport"), strings.Contains(value, "esport"), strings.Contains(value, "egaming"):
		return SportEsports, true
	case strings.HasPrefix(value, "basq"), strings.Contains(value, "basket"):
		return SportBasquete, true
	case strings.HasPrefix(value, "ten"):
		return SportTenis, true
	case strings.HasPrefix(value, "fut"), strings.Contains(value, "soccer"), strings.Contains(value, "foot"):
		return SportFutebol, true
	default:
		return "", false
	}
}

// ClassifySportOrDefault is the listing-context variant: unrecognized input
// classifies as futebol instead of being excluded.
func ClassifySportOrDefault(raw string) Sport {
	if sport, ok := DetectSport(raw); ok {
		return sport
	}
	return SportFutebol
}
