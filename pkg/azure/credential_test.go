package azure_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/azadapter/internal/logging"
	"github.com/systmms/azadapter/pkg/azure"
)

func TestResolveCredential(t *testing.T) {
	t.Parallel()

	own := &azure.Credential{Certificate: []byte("own"), PrivateKey: "own-key"}
	cloudCred := &azure.Credential{Certificate: []byte("cloud"), PrivateKey: "cloud-key"}
	clouds := []azure.Cloud{
		{ID: 1, Subscription: "sub-1"},
		{ID: 2, Subscription: "sub-2", CloudCredentials: cloudCred},
	}
	certProps := []azure.AssetProperty{
		{Name: azure.PropertyCertificate, ByteValue: []byte("prop")},
		{Name: azure.PropertyPrivateKey, StringValue: "prop-key"},
	}

	tests := []struct {
		name     string
		provider *azure.ServiceProvider
		want     *azure.Credential
	}{
		{
			name:     "nil provider",
			provider: nil,
			want:     nil,
		},
		{
			name:     "own credential wins",
			provider: &azure.ServiceProvider{Credentials: own, Properties: certProps, Cloud: &azure.Link{ID: 2}},
			want:     own,
		},
		{
			name:     "properties before cloud",
			provider: &azure.ServiceProvider{Properties: certProps, Cloud: &azure.Link{ID: 2}},
			want:     &azure.Credential{Certificate: []byte("prop"), PrivateKey: "prop-key"},
		},
		{
			name: "incomplete own credential is absent",
			provider: &azure.ServiceProvider{
				Credentials: &azure.Credential{Certificate: []byte("own")},
				Cloud:       &azure.Link{ID: 2},
			},
			want: cloudCred,
		},
		{
			name: "empty private key property is absent",
			provider: &azure.ServiceProvider{
				Properties: []azure.AssetProperty{
					{Name: azure.PropertyCertificate, ByteValue: []byte("prop")},
					{Name: azure.PropertyPrivateKey, StringValue: ""},
				},
				Cloud: &azure.Link{ID: 2},
			},
			want: cloudCred,
		},
		{
			name:     "linked cloud without credential",
			provider: &azure.ServiceProvider{Cloud: &azure.Link{ID: 1}},
			want:     nil,
		},
		{
			name:     "link to unknown cloud",
			provider: &azure.ServiceProvider{Cloud: &azure.Link{ID: 9}},
			want:     nil,
		},
		{
			name:     "nothing at all",
			provider: &azure.ServiceProvider{},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, azure.ResolveCredential(tt.provider, clouds))
		})
	}
}

func TestResolveSubscription(t *testing.T) {
	t.Parallel()

	clouds := []azure.Cloud{{ID: 1, Subscription: "cloud-sub"}, {ID: 2}}

	tests := []struct {
		name     string
		provider *azure.ServiceProvider
		want     string
	}{
		{name: "nil provider", want: ""},
		{
			name: "property",
			provider: &azure.ServiceProvider{
				Properties: []azure.AssetProperty{{Name: azure.PropertySubscription, StringValue: "prop-sub"}},
				Cloud:      &azure.Link{ID: 1},
			},
			want: "prop-sub",
		},
		{
			name: "empty property falls back to cloud",
			provider: &azure.ServiceProvider{
				Properties: []azure.AssetProperty{{Name: azure.PropertySubscription}},
				Cloud:      &azure.Link{ID: 1},
			},
			want: "cloud-sub",
		},
		{name: "cloud without subscription", provider: &azure.ServiceProvider{Cloud: &azure.Link{ID: 2}}, want: ""},
		{name: "no link", provider: &azure.ServiceProvider{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, azure.ResolveSubscription(tt.provider, clouds))
		})
	}
}

func TestFirstUsableCredential(t *testing.T) {
	t.Parallel()

	creds := []azure.Credential{
		{PrivateKey: "no-cert"},
		{Certificate: []byte("cert"), PrivateKey: "pw"},
		{Certificate: []byte("later")},
	}
	got := azure.FirstUsableCredential(creds)
	if assert.NotNil(t, got) {
		assert.Equal(t, []byte("cert"), got.Certificate)
	}

	assert.Nil(t, azure.FirstUsableCredential(nil))
	assert.Nil(t, azure.FirstUsableCredential([]azure.Credential{{PrivateKey: "x"}}))
}

func TestCredentialDescribeMasksKey(t *testing.T) {
	t.Parallel()

	c := &azure.Credential{Certificate: []byte("0123456789"), PrivateKey: "supersecretpassword"}
	out := logging.Describe("credential", c, false)

	assert.Contains(t, out, "--- Certificate: 10 bytes")
	assert.NotContains(t, out, "supersecretpassword")
	assert.True(t, strings.Contains(out, logging.MaskPrivateKey("supersecretpassword")))

	var nilCred *azure.Credential
	assert.Nil(t, nilCred.Describe())
	assert.False(t, nilCred.Usable())
}
