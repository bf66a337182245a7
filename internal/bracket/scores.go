package bracket

import (
	"strconv"
	"strings"
)

// ParseScoresCSV parses a Challonge "scores_csv" value like "2-1" into the
// two players' game counts. Multi-leg strings ("2-0,1-2,2-1") and negative
// DQ scores ("-1-0") do not describe a single recorded set and are rejected.
func ParseScoresCSV(s string) (p1, p2 int, ok bool) {
	if strings.Contains(s, ",") {
		return 0, 0, false
	}
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return 0, 0, false
	}

	p1, err1 := strconv.Atoi(parts[0])
	p2, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || p1 < 0 || p2 < 0 {
		return 0, 0, false
	}
	return p1, p2, true
}
