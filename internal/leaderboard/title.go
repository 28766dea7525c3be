package leaderboard

import (
	"regexp"
	"strconv"
)

// reTitleScore matches "[LB 0.694]" style tags that authors put in notebook titles.
var reTitleScore = regexp.MustCompile(`\[LB\s*([0-9]*\.?[0-9]+)\]`)

// ExtractTitleScore returns the first "[LB <number>]" score in title.
func ExtractTitleScore(title string) (float64, bool) {
	m := reTitleScore.FindStringSubmatch(title)
	if len(m) != 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
