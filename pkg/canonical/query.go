package canonical

import (
	"net/url"
	"sort"
	"strings"
)

// QueryParam is one query string entry. A flag parameter has no value and
// renders as just its name.
type QueryParam struct {
	Name     string
	Value    string
	HasValue bool
}

// QueryParams is an ordered collection of query parameters.
//
// CaseSensitive keeps parameter names as given; otherwise they are
// lower-cased when rendered. MaintainOrder renders parameters in insertion
// order; otherwise they are sorted by name.
type QueryParams struct {
	CaseSensitive bool
	MaintainOrder bool

	params []QueryParam
}

// NewQueryParams returns an empty, case-sensitive, insertion-ordered
// collection.
func NewQueryParams() *QueryParams {
	return &QueryParams{CaseSensitive: true, MaintainOrder: true}
}

// ParseQuery builds a collection from a raw (encoded) query string such as
// url.URL.RawQuery. Malformed escapes are kept verbatim.
func ParseQuery(raw string) *QueryParams {
	q := NewQueryParams()
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return q
	}

	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		name, value, hasValue := strings.Cut(part, "=")
		name = unescape(name)
		if !hasValue {
			q.AddFlag(name)
			continue
		}
		q.Add(name, unescape(value))
	}
	return q
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// Add appends a name=value parameter. The value is stored as given.
func (q *QueryParams) Add(name, value string) *QueryParams {
	q.params = append(q.params, QueryParam{Name: name, Value: value, HasValue: true})
	return q
}

// AddFlag appends a parameter without a value.
func (q *QueryParams) AddFlag(name string) *QueryParams {
	q.params = append(q.params, QueryParam{Name: name})
	return q
}

// Len returns the number of parameters.
func (q *QueryParams) Len() int {
	if q == nil {
		return 0
	}
	return len(q.params)
}

// Params returns a copy of the parameters in insertion order.
func (q *QueryParams) Params() []QueryParam {
	if q == nil {
		return nil
	}
	out := make([]QueryParam, len(q.params))
	copy(out, q.params)
	return out
}

// QueryString renders "?a=b&c" using the collection's own flags, or "" when
// the collection is empty. Names and values are form-encoded for the wire.
func (q *QueryParams) QueryString() string {
	if q.Len() == 0 {
		return ""
	}

	pairs := q.render(q.CaseSensitive, q.MaintainOrder)
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = url.QueryEscape(p.Name)
		if p.HasValue {
			parts[i] += "=" + url.QueryEscape(p.Value)
		}
	}
	return "?" + strings.Join(parts, "&")
}

// render returns the stored pairs under the given flags without touching the
// collection. Names and values are not escaped.
func (q *QueryParams) render(caseSensitive, maintainOrder bool) []QueryParam {
	pairs := make([]QueryParam, len(q.params))
	for i, p := range q.params {
		pairs[i] = p
		if !caseSensitive {
			pairs[i].Name = strings.ToLower(p.Name)
		}
	}

	if !maintainOrder {
		sort.SliceStable(pairs, func(i, j int) bool {
			return pairs[i].Name < pairs[j].Name
		})
	}
	return pairs
}
