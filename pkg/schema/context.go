package schema

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrUnknownType is returned when a type is not registered in a context.
	ErrUnknownType = errors.New("type not registered")

	// ErrNoMatch is returned when no registered type matches a document.
	ErrNoMatch = errors.New("no registered type matches document")
)

var xmlNameType = reflect.TypeOf(xml.Name{})

// binding ties a Go type to its wire identity.
type binding struct {
	typ    reflect.Type
	root   string
	schema *gojsonschema.Schema
}

// Context is the set of payload types known under one namespace. A Context
// is populated by its loader and read-only afterwards.
type Context struct {
	namespace string
	bindings  []*binding
	byType    map[reflect.Type]*binding
	byRoot    map[string]*binding
}

func newContext(namespace string) *Context {
	return &Context{
		namespace: namespace,
		byType:    make(map[reflect.Type]*binding),
		byRoot:    make(map[string]*binding),
	}
}

// Namespace returns the namespace the context was loaded for.
func (c *Context) Namespace() string {
	return c.namespace
}

// TypeOption customizes a registration.
type TypeOption func(*binding) error

// WithJSONSchema attaches a JSON Schema document used to recognize JSON
// bodies of the type.
func WithJSONSchema(document string) TypeOption {
	return func(b *binding) error {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(document))
		if err != nil {
			return fmt.Errorf("compile JSON schema for %s: %w", b.typ, err)
		}
		b.schema = s
		return nil
	}
}

// WithRootElement overrides the XML root element name.
func WithRootElement(name string) TypeOption {
	return func(b *binding) error {
		if name == "" {
			return fmt.Errorf("empty root element for %s", b.typ)
		}
		b.root = name
		return nil
	}
}

// Register adds struct type T to the context. The XML root element is taken
// from T's XMLName field tag, falling back to the type name.
func Register[T any](c *Context, opts ...TypeOption) error {
	return c.register(reflect.TypeFor[T](), opts...)
}

func (c *Context) register(t reflect.Type, opts ...TypeOption) error {
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("schema %s: %s is not a struct type", c.namespace, t)
	}
	if _, ok := c.byType[t]; ok {
		return fmt.Errorf("schema %s: %s registered twice", c.namespace, t)
	}

	b := &binding{typ: t, root: rootElement(t)}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return fmt.Errorf("schema %s: %w", c.namespace, err)
		}
	}

	if other, ok := c.byRoot[b.root]; ok {
		return fmt.Errorf("schema %s: root element %q used by both %s and %s", c.namespace, b.root, other.typ, t)
	}

	c.bindings = append(c.bindings, b)
	c.byType[t] = b
	c.byRoot[b.root] = b
	return nil
}

// rootElement reads the local name from an `xml:"[ns ]Name"` tag on an
// XMLName field.
func rootElement(t reflect.Type) string {
	if f, ok := t.FieldByName("XMLName"); ok && f.Type == xmlNameType {
		tag := strings.Split(f.Tag.Get("xml"), ",")[0]
		if fields := strings.Fields(tag); len(fields) > 0 {
			return fields[len(fields)-1]
		}
	}
	return t.Name()
}

// Knows reports whether t is registered.
func (c *Context) Knows(t reflect.Type) bool {
	_, ok := c.byType[t]
	return ok
}

// Check returns an error wrapping ErrUnknownType when t is not registered.
func (c *Context) Check(t reflect.Type) error {
	if !c.Knows(t) {
		return fmt.Errorf("%w: %s in schema %s", ErrUnknownType, t, c.namespace)
	}
	return nil
}

// Types returns the registered types in registration order.
func (c *Context) Types() []reflect.Type {
	types := make([]reflect.Type, len(c.bindings))
	for i, b := range c.bindings {
		types[i] = b.typ
	}
	return types
}

// RootElement returns the XML root element name for t.
func (c *Context) RootElement(t reflect.Type) (string, bool) {
	b, ok := c.byType[t]
	if !ok {
		return "", false
	}
	return b.root, true
}

// ResolveXML returns the registered type whose root element matches the
// document's root element.
func (c *Context) ResolveXML(data []byte) (reflect.Type, error) {
	root, err := documentRoot(data)
	if err != nil {
		return nil, err
	}

	b, ok := c.byRoot[root]
	if !ok {
		return nil, fmt.Errorf("%w: root element <%s> in %s", ErrNoMatch, root, c.namespace)
	}
	return b.typ, nil
}

func documentRoot(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", fmt.Errorf("%w: document has no root element", ErrNoMatch)
		}
		if err != nil {
			return "", fmt.Errorf("read XML: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// ResolveJSON returns the first registered type that accepts the document.
// preferred is tried first when it is registered, then every other type in
// registration order. A type without a JSON schema accepts any object.
func (c *Context) ResolveJSON(data []byte, preferred reflect.Type) (reflect.Type, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: JSON document is not an object", ErrNoMatch)
	}

	candidates := make([]*binding, 0, len(c.bindings))
	if b, ok := c.byType[preferred]; ok {
		candidates = append(candidates, b)
	}
	for _, b := range c.bindings {
		if b.typ != preferred {
			candidates = append(candidates, b)
		}
	}

	var reasons []string
	for _, b := range candidates {
		if b.schema == nil {
			return b.typ, nil
		}
		res, err := b.schema.Validate(gojsonschema.NewBytesLoader(trimmed))
		if err != nil {
			return nil, fmt.Errorf("read JSON: %w", err)
		}
		if res.Valid() {
			return b.typ, nil
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", b.typ.Name(), describeErrors(res.Errors())))
	}

	return nil, fmt.Errorf("%w in %s (%s)", ErrNoMatch, c.namespace, strings.Join(reasons, "; "))
}

func describeErrors(errs []gojsonschema.ResultError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.String()
	}
	return strings.Join(msgs, ", ")
}
