package matcher

import (
	"math"

	"github.com/xrash/smetrics"
)

// Scorer returns the similarity of two names on a 0..100 scale.
type Scorer func(a, b string) int

// TokenSortRatio scores two names by the normalized InDel distance of their
// token-sorted forms, so word order does not matter ("Studio Alpha" and
// "Alpha Studio" score 100). Insertions and deletions cost 1 and a
// substitution costs 2.
func TokenSortRatio(a, b string) int {
	return ratio(tokenSortKey(a), tokenSortKey(b))
}

func ratio(a, b string) int {
	total := len(a) + len(b)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 2)
	return int(math.Round(100 * float64(total-dist) / float64(total)))
}
