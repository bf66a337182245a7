// Package roster parses the player roster spreadsheet into a profile table
// mapping tag fingerprints to known mains and secondaries.
package roster

import (
	"regexp"
	"strings"

	"github.com/yourusername/replay-labeller/internal/models"
)

// Characters is the set of playable characters a roster entry can name.
var Characters = []string{
	"BOWSER", "CAPTAIN_FALCON", "DONKEY_KONG", "DR_MARIO", "FALCO", "FOX",
	"GAME_AND_WATCH", "GANONDORF", "ICE_CLIMBERS", "JIGGLYPUFF", "KIRBY",
	"LINK", "LUIGI", "MARIO", "MARTH", "MEWTWO", "NESS", "PEACH", "PICHU",
	"PIKACHU", "ROY", "SAMUS", "SHEIK", "YOSHI", "YOUNG_LINK", "ZELDA",
}

// charPatterns overrides the default match (the lowercased character name)
// for characters people rarely write out in full.
var charPatterns = map[string]string{
	"CAPTAIN_FALCON": `falcon`,
	"FALCO":          `falco([^n]|$)|bird`,
	"GAME_AND_WATCH": `game|watch|g&?w`,
	"ICE_CLIMBERS":   `ic([^h]|$)|climbers|popo|sopo|nana`,
	"DR_MARIO":       `dr|doc`,
	"DONKEY_KONG":    `donkey|kong|dk`,
	"PIKACHU":        `pika`,
	"JIGGLYPUFF":     `jigg|puff`,
	"YOUNG_LINK":     `yo?ung|yl`,
	"GANONDORF":      `gann?on|dorf`,
}

var charRegexps = compileCharRegexps()

func compileCharRegexps() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(Characters))
	for _, char := range Characters {
		pattern, ok := charPatterns[char]
		if !ok {
			pattern = strings.ToLower(char)
		}
		res[char] = regexp.MustCompile(pattern)
	}
	return res
}

// shadowedBy maps a character to the longer names that must be stripped from
// the input before its own pattern applies, so that e.g. "Young Link" does
// not also register as LINK.
var shadowedBy = map[string][]string{
	"LINK":  {"young link", "yung link", "yl"},
	"MARIO": {"dr. mario", "dr mario", "doc"},
}

// ExtractCharacters parses character names from free-form roster text like
// "Fox, sometimes ICs". Unknown text yields an empty set.
func ExtractCharacters(s string) models.CharacterSet {
	chars := make(models.CharacterSet)
	lowered := strings.ToLower(s)
	for _, char := range Characters {
		subject := lowered
		for _, shadow := range shadowedBy[char] {
			subject = strings.ReplaceAll(subject, shadow, "")
		}
		if charRegexps[char].MatchString(subject) {
			chars[char] = struct{}{}
		}
	}
	return chars
}

// Fingerprint normalizes a player tag so two spellings of the same tag
// compare equal: lowercased with spaces removed.
func Fingerprint(tag string) string {
	return strings.ReplaceAll(strings.ToLower(tag), " ", "")
}
