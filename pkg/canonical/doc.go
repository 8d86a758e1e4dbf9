// Package canonical builds the deterministic header and resource strings
// used as shared key signing input.
//
// Both canonical forms are pure functions of their inputs: headers are
// grouped by lower-cased name and emitted in name order, and query
// parameters are rendered from a case-insensitive, name-sorted snapshot of
// a QueryParams collection. The collection itself is never modified.
//
// Example:
//
//	headers := []canonical.Header{
//	    {Name: "x-ms-version", Value: "2009-09-19"},
//	    {Name: "x-ms-date", Value: "Thu, 15 Jan 2015 20:46:23 GMT"},
//	}
//	canonical.CanonicalizeHeaders(headers, "x-ms-")
//	// x-ms-date:Thu, 15 Jan 2015 20:46:23 GMT
//	// x-ms-version:2009-09-19
//
//	params := canonical.NewQueryParams().Add("comp", "list")
//	canonical.CanonicalizeResource("myaccount", "", params)
//	// /myaccount/
//	// comp:list
package canonical
