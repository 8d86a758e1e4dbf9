package canonical

import (
	"net/http"
	"sort"
	"strings"
)

// Header is a single request header. Repeated headers appear as separate
// entries with the same name.
type Header struct {
	Name  string
	Value string
}

// HeadersFromHTTP flattens an http.Header into a Header list, keeping the
// order of values within each name.
func HeadersFromHTTP(h http.Header) []Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var headers []Header
	for _, name := range names {
		for _, v := range h[name] {
			headers = append(headers, Header{Name: name, Value: v})
		}
	}
	return headers
}

// KeyValues is one header name with every value seen for it, in input order.
type KeyValues struct {
	Key    string
	Values []string
}

// Add appends a value.
func (kv *KeyValues) Add(value string) {
	kv.Values = append(kv.Values, value)
}

// Message renders the entry as "key:v1,v2".
func (kv *KeyValues) Message() string {
	return kv.Key + ":" + strings.Join(kv.Values, ",")
}

// CanonicalizeHeaders renders headers as sorted "name:value" lines joined by
// "\n". Only headers whose lower-cased name starts with prefix are included;
// an empty prefix includes everything. Names are trimmed and lower-cased,
// values are trimmed with embedded newlines folded to a space, and values of
// repeated names are joined with ",". The result is "" when no header matches.
func CanonicalizeHeaders(headers []Header, prefix string) string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))

	grouped := make(map[string]*KeyValues)
	for _, h := range headers {
		name := strings.ToLower(strings.TrimSpace(h.Name))
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		kv, ok := grouped[name]
		if !ok {
			kv = &KeyValues{Key: name}
			grouped[name] = kv
		}
		kv.Add(strings.ReplaceAll(strings.TrimSpace(h.Value), "\n", " "))
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = grouped[name].Message()
	}
	return strings.Join(lines, "\n")
}
