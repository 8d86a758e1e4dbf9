package azure

import (
	"errors"
	"fmt"
	"strings"
)

// AdapterError reports a configuration or encoding problem inside the
// adapter. Code is optional and mirrors the management API error codes
// when the problem originated there.
type AdapterError struct {
	Code    string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	var b strings.Builder
	b.WriteString("azure adapter")
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// ServiceError is a well formed error payload returned by the management
// API. Err holds the decoded value of the endpoint's error type.
type ServiceError struct {
	Err     any
	Content string
}

func (e *ServiceError) Error() string {
	if s, ok := e.Err.(fmt.Stringer); ok {
		return "azure service error: " + s.String()
	}
	return fmt.Sprintf("azure service error: %+v", e.Err)
}

// ServiceErrorAs extracts the typed provider error from err.
func ServiceErrorAs[E any](err error) (E, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		switch v := se.Err.(type) {
		case E:
			return v, true
		case *E:
			if v != nil {
				return *v, true
			}
		}
	}
	var zero E
	return zero, false
}

// DecodeError reports a response body that matched neither the expected
// type nor the error type.
type DecodeError struct {
	Message string
	Content string
}

func (e *DecodeError) Error() string {
	return "unable to decode response: " + e.Message
}

// RequestError reports a request that could not be built.
type RequestError struct {
	Method string
	URI    string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s '%s': %v", e.Method, e.URI, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// TransportError reports a request that was built but never produced a
// response.
type TransportError struct {
	Method string
	URI    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s '%s': %v", e.Method, e.URI, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
