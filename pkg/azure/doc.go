// Package azure talks to the certificate-authenticated Service Management
// API.
//
// An Endpoint fixes where requests go and how bodies are encoded: XML or
// JSON, with payload types drawn from a schema.Registry namespace. A
// Connection sends requests for one Endpoint through an azcore pipeline
// and returns a Future for each. Typed requests decode the response inside
// the future, so a caller sees one of three results:
//
//   - the expected value,
//   - a *ServiceError holding the decoded provider error,
//   - a *DecodeError, *RequestError or *TransportError.
//
// Credentials are resolved from the platform model with ResolveCredential
// and opened by NewConnection.
package azure
