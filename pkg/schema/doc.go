// Package schema maps namespaces to the set of payload types that may appear
// on the wire under them.
//
// A Registry holds one Loader per namespace. The first Get for a namespace
// runs its loader to build a Context, which is then cached until evicted:
//
//	reg := schema.NewRegistry()
//	reg.Define("servicemanagement", func(c *schema.Context) error {
//	    if err := schema.Register[HostedService](c); err != nil {
//	        return err
//	    }
//	    return schema.Register[Error](c, schema.WithJSONSchema(errorSchema))
//	})
//
//	ctx, err := reg.Get("servicemanagement")
//
// A Context resolves a response body to one of its types: XML bodies by
// root element name, JSON bodies by JSON Schema validation.
package schema
