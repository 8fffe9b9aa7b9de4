package stepn

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
)

// PriceScale is the number of minor units in one major unit of a listing price.
const PriceScale = 1_000_000

// Listing is one row of an orderlist page. The typed fields cover what the
// scanner composes messages from, Raw keeps every field the upstream sent.
type Listing struct {
	ID        int64   `json:"id"`
	Otd       int64   `json:"otd"`
	PropID    int64   `json:"propID"`
	Img       string  `json:"img"`
	DataID    int64   `json:"dataID"`
	SellPrice int64   `json:"sellPrice"`
	Hp        int     `json:"hp"`
	Level     int     `json:"level"`
	Quality   Quality `json:"quality"`
	Mint      int     `json:"mint"`

	// Chain is the chain the listing was requested on.
	Chain Chain           `json:"-"`
	Raw   json.RawMessage `json:"-"`
}

// Price is the sell price in major units.
func (l Listing) Price() float64 {
	return float64(l.SellPrice) / PriceScale
}

// Field returns the value of a field of the raw listing, `price` is the sell
// price in major units. The value is nil when the field is missing or null,
// numbers are json.Number.
func (l Listing) Field(name string) any {
	if name == "price" {
		return json.Number(strconv.FormatFloat(l.Price(), 'f', -1, 64))
	}
	return fieldOf(l.Raw, name)
}

// ListingDetail is the orderdata response of one order.
type ListingDetail struct {
	ID    int64           `json:"id"`
	Attrs []float64       `json:"attrs"`
	Raw   json.RawMessage `json:"-"`
}

func (d ListingDetail) Field(name string) any {
	return fieldOf(d.Raw, name)
}

// Attr returns the attribute with the given name, it is 0 when the attribute
// list does not reach that far and false when the name is unknown.
func (d ListingDetail) Attr(name string) (float64, bool) {
	attr, ok := ParseAttr(name)
	if !ok {
		return 0, false
	}
	if int(attr) >= len(d.Attrs) {
		return 0, true
	}
	return d.Attrs[attr], true
}

func fieldOf(raw json.RawMessage, name string) any {
	res := gjson.GetBytes(raw, gjson.Escape(name))
	switch res.Type {
	case gjson.Number:
		return json.Number(res.Raw)
	case gjson.String:
		return res.Str
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.JSON:
		return res.Raw
	}
	return nil
}
