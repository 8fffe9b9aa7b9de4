package stepn

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type Chain int

const (
	ChainETH Chain = 101
	ChainSOL Chain = 103
	ChainBNB Chain = 104
)

var chainNames = map[Chain]string{
	ChainSOL: "sol",
	ChainBNB: "bnb",
	ChainETH: "eth",
}

// Currency is the token a listing on the chain is priced in.
func (c Chain) Currency() string {
	switch c {
	case ChainSOL:
		return "SOL"
	case ChainBNB:
		return "BNB"
	case ChainETH:
		return "ETH"
	}
	return strconv.Itoa(int(c))
}

func (c Chain) String() string                { return nameOf(chainNames, c) }
func (c *Chain) UnmarshalJSON(b []byte) error { return unmarshalEnum(b, chainNames, c) }

type ItemType int

const (
	TypeShoeboxesAll ItemType = 301
	TypeSneakersAll  ItemType = 600
	TypeWalker       ItemType = 601
	TypeJogger       ItemType = 602
	TypeRunner       ItemType = 603
	TypeTrainer      ItemType = 604
)

var itemTypeNames = map[ItemType]string{
	TypeSneakersAll:  "sneakers_all",
	TypeWalker:       "sneakers_walker",
	TypeJogger:       "sneakers_jogger",
	TypeRunner:       "sneakers_runner",
	TypeTrainer:      "sneakers_trainer",
	TypeShoeboxesAll: "shoeboxes_all",
}

func (t ItemType) String() string                { return nameOf(itemTypeNames, t) }
func (t *ItemType) UnmarshalJSON(b []byte) error { return unmarshalEnum(b, itemTypeNames, t) }

type Order int

const (
	OrderLatest       Order = 1002
	OrderLowestPrice  Order = 2001
	OrderHighestPrice Order = 2002
)

var orderNames = map[Order]string{
	OrderLowestPrice:  "lowest_price",
	OrderHighestPrice: "highest_price",
	OrderLatest:       "latest",
}

func (o Order) String() string                { return nameOf(orderNames, o) }
func (o *Order) UnmarshalJSON(b []byte) error { return unmarshalEnum(b, orderNames, o) }

// Quality of a sneaker, 0 means any quality in a filter.
type Quality int

const (
	QualityCommon Quality = iota + 1
	QualityUncommon
	QualityRare
	QualityEpic
	QualityLegendary
)

var qualityNames = map[Quality]string{
	QualityCommon:    "common",
	QualityUncommon:  "uncommon",
	QualityRare:      "rare",
	QualityEpic:      "epic",
	QualityLegendary: "legendary",
}

func (q Quality) String() string                { return nameOf(qualityNames, q) }
func (q *Quality) UnmarshalJSON(b []byte) error { return unmarshalEnum(b, qualityNames, q) }

// Attr indexes the attribute list of an order detail.
type Attr int

const (
	AttrEfficiency Attr = iota
	AttrLuck
	AttrComfort
	AttrResilience
	AttrUnknown
)

var attrNames = map[Attr]string{
	AttrEfficiency: "Efficiency",
	AttrLuck:       "Luck",
	AttrComfort:    "Comfort",
	AttrResilience: "Resilience",
	AttrUnknown:    "Unknown",
}

func (a Attr) String() string { return nameOf(attrNames, a) }

// ParseAttr looks an attribute up by its exact name.
func ParseAttr(name string) (Attr, bool) {
	return lookupName(attrNames, name)
}

func nameOf[T ~int](names map[T]string, v T) string {
	name, ok := names[v]
	if !ok {
		return strconv.Itoa(int(v))
	}
	return name
}

func lookupName[T ~int](names map[T]string, name string) (T, bool) {
	for v, n := range names {
		if n == name {
			return v, true
		}
	}
	return 0, false
}

// unmarshalEnum accepts either the symbolic name of a value or its raw number.
func unmarshalEnum[T ~int](b []byte, names map[T]string, out *T) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		if name == "" {
			*out = 0
			return nil
		}
		v, ok := lookupName(names, name)
		if !ok {
			n, err := strconv.Atoi(name)
			if err != nil {
				return fmt.Errorf("unknown value %q", name)
			}
			v = T(n)
		}
		*out = v
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a name or a number, got %s", b)
	}
	*out = T(n)
	return nil
}
