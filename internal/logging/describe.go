package logging

import (
	"fmt"
	"strings"
)

// Field is one labelled value of an object rendered for diagnostics.
type Field struct {
	Name  string
	Value interface{}

	// Sensitive values are passed through MaskPrivateKey before rendering.
	Sensitive bool
}

// Describer is implemented by types that know how to present themselves in
// diagnostic output. Each type decides which fields are shown and which are
// masked.
type Describer interface {
	Describe() []Field
}

// Describe renders obj as an indented field list. Nested Describer values are
// expanded when recursive is set, otherwise only their type is printed.
func Describe(label string, obj Describer, recursive bool) string {
	if obj == nil {
		return ""
	}
	var b strings.Builder
	describe(&b, label, obj, recursive, 1)
	return b.String()
}

func describe(b *strings.Builder, label string, obj Describer, recursive bool, depth int) {
	indent := strings.Repeat("    ", depth-1)
	fmt.Fprintf(b, "%s--- %s\n", indent, label)

	for _, f := range obj.Describe() {
		value := f.Value
		if nested, ok := f.Value.(Describer); ok && nested != nil {
			if recursive {
				describe(b, f.Name, nested, recursive, depth+1)
				continue
			}
			value = fmt.Sprintf("%T", nested)
		}

		if f.Sensitive {
			value = MaskPrivateKey(fmt.Sprint(f.Value))
		}
		fmt.Fprintf(b, "%s--- %s: %v\n", indent, f.Name, value)
	}
}

// Object logs the description of obj at debug level and returns it. Nothing is
// rendered when debug output is disabled.
func (l *Logger) Object(label string, obj Describer) string {
	if !l.debug {
		return ""
	}
	s := Describe(label, obj, false)
	l.Debug("%s", strings.TrimRight(s, "\n"))
	return s
}
