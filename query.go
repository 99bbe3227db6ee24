package smartsheet

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryBuilder accumulates name=value pairs into a query string.
// The first pair is prefixed with "?" and later ones with "&". Values are
// written as given; escaping is the caller's job (see EscapedPair).
//
// The zero value is ready to use. Build a new one to start over.
type QueryBuilder struct {
	buf strings.Builder
	n   int
}

// Add appends name=value.
func (q *QueryBuilder) Add(name, value string) *QueryBuilder {
	if q.n == 0 {
		q.buf.WriteByte('?')
	} else {
		q.buf.WriteByte('&')
	}
	q.buf.WriteString(name)
	q.buf.WriteByte('=')
	q.buf.WriteString(value)
	q.n++
	return q
}

// AddInt appends an integer parameter.
func (q *QueryBuilder) AddInt(name string, value int) *QueryBuilder {
	return q.Add(name, strconv.Itoa(value))
}

// AddBool appends a boolean parameter.
func (q *QueryBuilder) AddBool(name string, value bool) *QueryBuilder {
	return q.Add(name, strconv.FormatBool(value))
}

// AddEscaped percent-encodes name and value before appending them.
func (q *QueryBuilder) AddEscaped(name, value string) *QueryBuilder {
	return q.Add(EscapedPair(name, value))
}

// Len returns the number of pairs added so far.
func (q *QueryBuilder) Len() int {
	return q.n
}

// String returns the accumulated query string, or "" if nothing was added.
func (q *QueryBuilder) String() string {
	return q.buf.String()
}

// EscapedPair percent-encodes a query parameter name and value.
func EscapedPair(name, value string) (string, string) {
	return url.QueryEscape(name), url.QueryEscape(value)
}

// queryParams is an insertion-ordered view of a raw query string.
type queryParams struct {
	keys   []string
	values map[string]string
}

// parseQuery splits raw on "&" and each pair on its first "=".
// Nothing is percent-decoded. A pair without "=" maps to an empty value and
// a repeated key keeps its last value but its first position.
func parseQuery(raw string) queryParams {
	p := queryParams{values: make(map[string]string)}
	if raw == "" {
		return p
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if _, seen := p.values[key]; !seen {
			p.keys = append(p.keys, key)
		}
		p.values[key] = value
	}
	return p
}

// Get returns the value for key and whether it was present.
func (p queryParams) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the parameter names in first-seen order.
func (p queryParams) Keys() []string {
	return p.keys
}
