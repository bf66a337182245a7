package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "mango", Fingerprint("MaNg O"))
	assert.Equal(t, "c9mango", Fingerprint("C9 Mango"))
	assert.Equal(t, "", Fingerprint("   "))
}

func TestExtractCharactersBasics(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Fox", []string{"FOX"}},
		{"fox, marth", []string{"FOX", "MARTH"}},
		{"Jiggs", []string{"JIGGLYPUFF"}},
		{"ICs", []string{"ICE_CLIMBERS"}},
		{"G&W", []string{"GAME_AND_WATCH"}},
		{"sheik/zelda", []string{"SHEIK", "ZELDA"}},
		{"", nil},
		{"none really", nil},
	}

	for _, tc := range cases {
		got := ExtractCharacters(tc.in)
		assert.Len(t, got, len(tc.want), "input %q", tc.in)
		for _, want := range tc.want {
			assert.True(t, got.Contains(want), "input %q missing %s", tc.in, want)
		}
	}
}

func TestExtractCharactersFalcoFalcon(t *testing.T) {
	falco := ExtractCharacters("Falco")
	assert.True(t, falco.Contains("FALCO"))
	assert.False(t, falco.Contains("CAPTAIN_FALCON"))

	falcon := ExtractCharacters("Falcon")
	assert.True(t, falcon.Contains("CAPTAIN_FALCON"))
	assert.False(t, falcon.Contains("FALCO"))

	both := ExtractCharacters("falco and falcon")
	assert.True(t, both.Contains("FALCO"))
	assert.True(t, both.Contains("CAPTAIN_FALCON"))
}

func TestExtractCharactersShadowedNames(t *testing.T) {
	yl := ExtractCharacters("Young Link")
	assert.True(t, yl.Contains("YOUNG_LINK"))
	assert.False(t, yl.Contains("LINK"), "Young Link must not register as adult Link")

	link := ExtractCharacters("Link")
	assert.True(t, link.Contains("LINK"))
	assert.False(t, link.Contains("YOUNG_LINK"))

	doc := ExtractCharacters("Doc")
	assert.True(t, doc.Contains("DR_MARIO"))
	assert.False(t, doc.Contains("MARIO"))

	mario := ExtractCharacters("Mario")
	assert.True(t, mario.Contains("MARIO"))

	both := ExtractCharacters("dr. mario, mario")
	assert.True(t, both.Contains("DR_MARIO"))
	assert.True(t, both.Contains("MARIO"))
}

func TestExtractCharactersICsNotICH(t *testing.T) {
	// "ich" inside a word must not read as ICE_CLIMBERS.
	got := ExtractCharacters("pichu")
	assert.True(t, got.Contains("PICHU"))
	assert.False(t, got.Contains("ICE_CLIMBERS"))
}
