package sharedkey

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/systmms/azadapter/internal/logging"
	"github.com/systmms/azadapter/internal/metrics"
	"github.com/systmms/azadapter/internal/secure"
)

// Policy is an azcore pipeline policy that stamps x-ms-date and signs each
// request attempt with a SharedKey Authorization header. Install it as a
// per-retry policy so every retry carries a fresh date and signature.
type Policy struct {
	account string
	key     *secure.SealedKey

	now     func() time.Time
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// Option configures a Policy.
type Option func(*Policy)

// WithClock overrides the time source used for x-ms-date.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		p.now = now
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *logging.Logger) Option {
	return func(p *Policy) {
		p.logger = l
	}
}

// WithMetrics records each signature.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Policy) {
		p.metrics = m
	}
}

// NewPolicy seals key and returns a signing policy for account.
func NewPolicy(account, key string, opts ...Option) (*Policy, error) {
	if isBlank(account) {
		return nil, &SignatureError{Err: errors.New("account is required")}
	}

	sealed, err := secure.SealBase64(key)
	if err != nil {
		return nil, &SignatureError{Account: account, Err: err}
	}

	p := &Policy{
		account: account,
		key:     sealed,
		now:     time.Now,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Do implements policy.Policy.
func (p *Policy) Do(req *policy.Request) (*http.Response, error) {
	raw := req.Raw()
	raw.Header.Set("x-ms-date", p.now().UTC().Format(http.TimeFormat))

	auth, err := p.Sign(raw)
	if err != nil {
		return nil, err
	}
	raw.Header.Set("Authorization", auth)

	return req.Next()
}

// Sign computes the Authorization value for req as it currently stands.
func (p *Policy) Sign(req *http.Request) (string, error) {
	stringToSign := StringToSign(req, p.account)
	p.logger.Debug("string to sign for %s:\n%s", p.account, stringToSign)

	var signature string
	err := p.key.Use(func(key []byte) error {
		signature = sign(key, stringToSign)
		return nil
	})
	p.metrics.RecordSignature(err == nil)
	if err != nil {
		return "", &SignatureError{Account: p.account, Err: fmt.Errorf("unseal key: %w", err)}
	}

	return authorization(p.account, signature), nil
}

// Account returns the account the policy signs for.
func (p *Policy) Account() string {
	return p.account
}

// Close wipes the sealed key. Requests signed afterwards fail.
func (p *Policy) Close() {
	p.key.Destroy()
}

// String describes the policy without revealing the key.
func (p *Policy) String() string {
	return fmt.Sprintf("%s policy for %s (%d byte key)", Scheme, p.account, p.key.Size())
}

var _ policy.Policy = (*Policy)(nil)
