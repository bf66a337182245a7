package models

// CharacterSet is a set of character names.
type CharacterSet map[string]struct{}

// NewCharacterSet builds a set from the given names.
func NewCharacterSet(names ...string) CharacterSet {
	s := make(CharacterSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether the set holds the given character.
func (s CharacterSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// PlayerProfile records which characters a player is known to play.
type PlayerProfile struct {
	Mains       CharacterSet `json:"mains"`
	Secondaries CharacterSet `json:"secondaries"`
}

// ProfileTable maps a tag fingerprint to the player's profile. Read-only
// during labelling.
type ProfileTable map[string]PlayerProfile
