package canonical

import "strings"

// CanonicalizeResource renders the canonical resource string:
//
//	/{account}/{uri}\n{name}:{value}\n...
//
// The account segment is dropped when account is empty and the uri when uri
// is empty. Query parameters are rendered case-insensitively and sorted by
// name regardless of the flags set on params. Values are written exactly as
// stored, so a caller holding pre-encoded values gets them back unchanged.
// A parameter without a value renders as its name.
func CanonicalizeResource(account, uri string, params *QueryParams) string {
	var b strings.Builder

	if account != "" {
		b.WriteString("/" + account + "/")
	}
	b.WriteString(uri)
	b.WriteString("\n")

	if params.Len() == 0 {
		return b.String()
	}

	pairs := params.render(false, false)
	for i, p := range pairs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Name)
		if p.HasValue && p.Value != "" {
			b.WriteString(":" + p.Value)
		}
	}
	return b.String()
}
