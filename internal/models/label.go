package models

// Label is a hypothesized correspondence between a match and a contiguous
// window of games: the match's GameCount games taken from setup SetupIndex
// starting at GameIndex.
type Label struct {
	LogLikelihood float64 `json:"log_likelihood"`
	SetupIndex    int     `json:"setup_index"`
	GameIndex     int     `json:"game_index"`
}

// RankedLabel is a label whose raw log-likelihood has been converted to a
// relative probability against the match's other feasible labels. A nil
// Label means the "no label" option.
type RankedLabel struct {
	Probability float64 `json:"probability"`
	Label       *Label  `json:"label,omitempty"`
}

// Assignment is one globally optimal labelling: the solver objective value
// plus, per match, either a chosen label or nil for unlabelled.
type Assignment struct {
	Objective float64  `json:"objective"`
	Labels    []*Label `json:"labels"`
}

// LabelledCount returns the number of matches that received a label.
func (a *Assignment) LabelledCount() int {
	n := 0
	for _, l := range a.Labels {
		if l != nil {
			n++
		}
	}
	return n
}
