package stepn

import (
	"net/url"
	"strconv"
	"strings"
)

type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of query parameters, the query string keeps the
// order the call site appended them in.
type Params []Param

func (p Params) Add(key string, value any) Params {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case bool:
		s = strconv.FormatBool(v)
	default:
		panic("unsupported param type")
	}
	return append(p, Param{Key: key, Value: s})
}

// Encode renders `key=value&key=value`, values are query escaped.
func (p Params) Encode() string {
	var out strings.Builder
	for i, param := range p {
		if i > 0 {
			out.WriteByte('&')
		}
		out.WriteString(url.QueryEscape(param.Key))
		out.WriteByte('=')
		out.WriteString(url.QueryEscape(param.Value))
	}
	return out.String()
}

// Paging is the filter and cursor of an orderlist request.
type Paging struct {
	Order   Order    `json:"order"`
	Chain   Chain    `json:"chain"`
	Refresh bool     `json:"refresh"`
	Page    int      `json:"page"`
	Type    ItemType `json:"type"`
	// GType, Level and Bread are passed through untouched, empty means no filter.
	GType   string  `json:"gType"`
	Quality Quality `json:"quality"`
	Level   string  `json:"level"`
	Bread   string  `json:"bread"`
}

// Params returns the orderlist parameters in the order the upstream web app sends them.
func (p Paging) Params() Params {
	quality := ""
	if p.Quality != 0 {
		quality = strconv.Itoa(int(p.Quality))
	}
	return Params{}.
		Add("order", int(p.Order)).
		Add("chain", int(p.Chain)).
		Add("refresh", p.Refresh).
		Add("page", p.Page).
		Add("type", int(p.Type)).
		Add("gType", p.GType).
		Add("quality", quality).
		Add("level", p.Level).
		Add("bread", p.Bread)
}
