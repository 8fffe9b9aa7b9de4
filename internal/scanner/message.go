package scanner

import (
	"fmt"
	"marketwatch/internal/stepn"
	"marketwatch/internal/threshold"
	"strconv"
	"strings"
)

const (
	OrderURL = "https://m.stepn.com/order"
	ImageURL = "https://res.stepn.com/imgOut"
)

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func listingMessage(title string, listing stepn.Listing) string {
	return fmt.Sprintf(
		"%s => details: %s %s - lvl %d - %s - %d mint\nLink: %s/%d\n",
		title,
		formatNumber(listing.Price()),
		listing.Chain.Currency(),
		listing.Level,
		listing.Quality,
		listing.Mint,
		OrderURL,
		listing.ID,
	)
}

// driftLine describes the new reference and the price band around it.
func driftLine(listing stepn.Listing, drift, percent float64) string {
	price := listing.Price()
	currency := listing.Chain.Currency()
	return fmt.Sprintf(
		"\n%s%% from previous price, new price limit: %s %s (+%s %s/-%s %s) (%s%%)",
		formatNumber(drift),
		formatNumber(price),
		currency,
		formatNumber(threshold.AddPercent(price, percent)),
		currency,
		formatNumber(threshold.SubPercent(price, percent)),
		currency,
		formatNumber(percent),
	)
}

func attrLine(detail stepn.ListingDetail) string {
	var out strings.Builder
	out.WriteString(" - ")
	for i, attr := range []struct {
		attr  stepn.Attr
		label string
	}{
		{stepn.AttrEfficiency, "eff"},
		{stepn.AttrLuck, "luck"},
		{stepn.AttrComfort, "com"},
		{stepn.AttrResilience, "res"},
	} {
		if i > 0 {
			out.WriteString(" - ")
		}
		v, _ := detail.Attr(attr.attr.String())
		fmt.Fprintf(&out, "%s %s", formatNumber(v/10), attr.label)
	}
	out.WriteString("\n")
	return out.String()
}

func imageURL(listing stepn.Listing) string {
	if listing.Img == "" {
		return ""
	}
	return ImageURL + "/" + listing.Img
}
