package azure

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	jsoniter "github.com/json-iterator/go"

	"github.com/systmms/azadapter/pkg/schema"
)

// upperCamelNames renames every serialized struct field to the upper camel
// case form of its Go name, ignoring json tag names. Fields tagged "-" stay
// hidden and omitempty still applies.
type upperCamelNames struct {
	jsoniter.DummyExtension
}

func (*upperCamelNames) UpdateStructDescriptor(sd *jsoniter.StructDescriptor) {
	for _, b := range sd.Fields {
		if len(b.ToNames) == 0 && len(b.FromNames) == 0 {
			continue
		}
		name := upperCamel(b.Field.Name())
		b.ToNames = []string{name}
		b.FromNames = []string{name}
	}
}

func upperCamel(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

var jsonAPI = func() jsoniter.API {
	api := jsoniter.Config{
		EscapeHTML:  false,
		SortMapKeys: true,
	}.Froze()
	api.RegisterExtension(&upperCamelNames{})
	return api
}()

// Encode marshals v with the default namespace.
func (e *Endpoint) Encode(v any) (string, error) {
	return e.EncodeNamespace(e.namespace, v)
}

// EncodeNamespace marshals v, whose type must be registered in namespace,
// using the endpoint's media type.
func (e *Endpoint) EncodeNamespace(namespace string, v any) (string, error) {
	ctx, err := e.ContextFor(namespace)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", &AdapterError{Message: "unable to encode nil object"}
	}

	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if err := ctx.Check(t); err != nil {
		return "", &AdapterError{Message: "unable to encode object", Err: err}
	}

	var out []byte
	switch e.media {
	case MediaJSON:
		out, err = jsonAPI.MarshalIndent(v, "", "  ")
	default:
		out, err = xml.MarshalIndent(v, "", "  ")
		if err == nil {
			out = append([]byte(xml.Header), out...)
		}
	}
	if err != nil {
		return "", &AdapterError{Message: "unable to encode object", Err: err}
	}
	e.logger.Debug("encoded %s as %s", t, e.media)
	return string(out), nil
}

// Decode reads resp under the default namespace. See DecodeNamespace.
func Decode[T any](e *Endpoint, resp *http.Response) (T, error) {
	return DecodeNamespace[T](e, resp, "")
}

// DecodeNamespace turns resp into a T. When T is *http.Response the
// response is returned untouched. Otherwise the body is decoded under
// namespace; a body that decodes into the endpoint's error type yields a
// *ServiceError, and anything else that is not a T yields a *DecodeError.
func DecodeNamespace[T any](e *Endpoint, resp *http.Response, namespace string) (T, error) {
	var zero T
	if v, ok := any(resp).(T); ok {
		return v, nil
	}

	ctx, err := e.ContextFor(namespace)
	if err != nil {
		return zero, err
	}
	if resp == nil {
		return zero, &DecodeError{Message: "no response"}
	}

	body, err := runtime.Payload(resp)
	if err != nil {
		return zero, &DecodeError{Message: fmt.Sprintf("read body: %v", err)}
	}
	content := string(body)

	var reasons []error
	ptr, err := e.decodeContent(ctx, body, reflect.TypeFor[T]())
	if err == nil {
		if v, ok := valueAs[T](ptr); ok {
			return v, nil
		}
		reasons = append(reasons, fmt.Errorf("decoded %s, expected %s", ptr.Type().Elem(), reflect.TypeFor[T]()))
	} else {
		reasons = append(reasons, err)
	}

	if ctx != e.context {
		ptr, err = e.decodeContent(e.context, body, e.errorType)
		if err != nil {
			reasons = append(reasons, err)
		}
	}
	if err == nil && ptr.Type().Elem() == e.errorType {
		e.logger.Debug("response decoded as service error %s", e.errorType)
		return zero, &ServiceError{Err: ptr.Elem().Interface(), Content: content}
	}

	return zero, &DecodeError{Message: errors.Join(reasons...).Error(), Content: content}
}

// decodeContent decodes body into a new value of the type ctx selects for
// it and returns a pointer to that value. want guides JSON resolution; a
// JSON body for a type the context does not know is decoded directly.
func (e *Endpoint) decodeContent(ctx *schema.Context, body []byte, want reflect.Type) (reflect.Value, error) {
	base := want
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	switch e.media {
	case MediaJSON:
		t := base
		if ctx.Knows(base) {
			resolved, err := ctx.ResolveJSON(body, base)
			if err != nil {
				return reflect.Value{}, err
			}
			t = resolved
		}
		ptr := reflect.New(t)
		if err := jsonAPI.Unmarshal(body, ptr.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("unmarshal %s: %w", t, err)
		}
		return ptr, nil

	default:
		t, err := ctx.ResolveXML(body)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t)
		if err := xml.Unmarshal(body, ptr.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("unmarshal %s: %w", t, err)
		}
		return ptr, nil
	}
}

func valueAs[T any](ptr reflect.Value) (T, bool) {
	if v, ok := ptr.Interface().(T); ok {
		return v, true
	}
	v, ok := ptr.Elem().Interface().(T)
	return v, ok
}
