package scanner

import (
	"marketwatch/internal/stepn"
)

// Rule describes what one scan looks for. Only the page cursor of Paging changes
// during a scan and it is changed on a copy.
type Rule struct {
	Title string
	// Condition filters listings, an empty condition lets every listing through.
	Condition string
	// DetailCondition filters order details, when empty no detail is fetched.
	DetailCondition string
	Paging          stepn.Paging
	// PageEnd is the last page scanned, inclusive.
	PageEnd int
	// Limit is the maximum number of matches, 0 means no limit.
	Limit int

	// Price is the reference price in minor units used when ThresholdFile holds none.
	Price float64
	// Threshold is the drift in percent a listing needs to be reported, 0 disables tracking.
	Threshold     float64
	ThresholdFile string

	ImageEnabled bool
	// StopOnPriceUpdate ends the rule once a listing moved the reference price.
	StopOnPriceUpdate bool
}

func (r Rule) tracksPrice() bool {
	return r.Threshold > 0
}
