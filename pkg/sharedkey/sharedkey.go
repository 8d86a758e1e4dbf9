// Package sharedkey computes SharedKey authorization tokens and signs
// outgoing requests with them.
package sharedkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/systmms/azadapter/internal/logging"
	"github.com/systmms/azadapter/pkg/canonical"
)

// Scheme is the authorization scheme prefix.
const Scheme = "SharedKey"

// SignatureError reports a failure to compute a signature from inputs that
// were all present.
type SignatureError struct {
	Account string
	Err     error
}

func (e *SignatureError) Error() string {
	if e.Account == "" {
		return fmt.Sprintf("sharedkey: signature failed: %v", e.Err)
	}
	return fmt.Sprintf("sharedkey: signature for account %s failed: %v", e.Account, e.Err)
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

// CreateSharedKeyAuthorization returns "SharedKey {account}:{signature}"
// where signature is the base64 HMAC-SHA256 of stringToSign keyed with the
// base64-decoded key.
//
// When any input is blank the result is "" with a nil error; callers treat
// that as "not signed". A key that cannot be decoded is a *SignatureError.
func CreateSharedKeyAuthorization(stringToSign, base64Key, account string) (string, error) {
	return AuthorizationWithLogger(nil, stringToSign, base64Key, account)
}

// AuthorizationWithLogger is CreateSharedKeyAuthorization with the blank-input
// case reported on logger at debug level, key masked. A nil logger discards.
func AuthorizationWithLogger(logger *logging.Logger, stringToSign, base64Key, account string) (string, error) {
	if isBlank(stringToSign) || isBlank(base64Key) || isBlank(account) {
		if logger != nil {
			logger.Debug("shared key authorization is missing one or more values: stringToSign[%s] key[%s] account[%s]",
				stringToSign, logging.MaskPrivateKey(base64Key), account)
		}
		return "", nil
	}

	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return "", &SignatureError{Account: account, Err: fmt.Errorf("decode key: %w", err)}
	}
	if len(key) == 0 {
		return "", &SignatureError{Account: account, Err: fmt.Errorf("decoded key is empty")}
	}

	return authorization(account, sign(key, stringToSign)), nil
}

func sign(key []byte, stringToSign string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func authorization(account, signature string) string {
	return Scheme + " " + account + ":" + signature
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// standardHeaders are the header values that lead the string to sign, in
// order, after the verb.
var standardHeaders = []string{
	"Content-Encoding",
	"Content-Language",
	"Content-Length",
	"Content-MD5",
	"Content-Type",
	"Date",
	"If-Modified-Since",
	"If-Match",
	"If-None-Match",
	"If-Unmodified-Since",
	"Range",
}

// StringToSign builds the shared key string to sign for req:
//
//	VERB\n{11 standard headers}\n{canonical x-ms- headers}\n{canonical resource}
//
// Content-Length is left empty when the body is empty. The canonical
// resource uses the URL path without its leading slash and the query
// parameters URL-decoded once, which is the form the storage service signs.
func StringToSign(req *http.Request, account string) string {
	var b strings.Builder
	b.WriteString(req.Method)
	b.WriteString("\n")

	for _, name := range standardHeaders {
		value := req.Header.Get(name)
		if name == "Content-Length" {
			value = contentLength(req)
		}
		b.WriteString(value)
		b.WriteString("\n")
	}

	if headers := canonical.CanonicalizeHeaders(canonical.HeadersFromHTTP(req.Header), "x-ms-"); headers != "" {
		b.WriteString(headers)
		b.WriteString("\n")
	}

	uri := strings.TrimPrefix(req.URL.Path, "/")
	b.WriteString(canonical.CanonicalizeResource(account, uri, canonical.ParseQuery(req.URL.RawQuery)))
	return b.String()
}

func contentLength(req *http.Request) string {
	if req.ContentLength > 0 {
		return strconv.FormatInt(req.ContentLength, 10)
	}
	if v := req.Header.Get("Content-Length"); v != "" && v != "0" {
		return v
	}
	return ""
}
