package azure_test

import (
	"encoding/base64"
	"encoding/xml"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/systmms/azadapter/pkg/schema"
)

const (
	nsManagement = "management"
	nsCompute    = "compute"

	testPassword = "foobar"
)

type HostedService struct {
	XMLName     xml.Name `xml:"HostedService" json:"-"`
	ServiceName string   `xml:"ServiceName" json:"serviceName"`
	Label       string   `xml:"Label" json:"label"`
	Location    string   `xml:"Location,omitempty" json:"location,omitempty"`
}

type ManagementError struct {
	XMLName xml.Name `xml:"Error" json:"-"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

type Deployment struct {
	XMLName xml.Name `xml:"Deployment" json:"-"`
	Name    string   `xml:"Name"`
	Status  string   `xml:"Status"`
}

const hostedServiceSchema = `{
  "type": "object",
  "required": ["ServiceName"],
  "properties": {"ServiceName": {"type": "string"}}
}`

const managementErrorSchema = `{
  "type": "object",
  "required": ["Code", "Message"]
}`

const deploymentSchema = `{
  "type": "object",
  "required": ["Name", "Status"]
}`

func newRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	reg := schema.NewRegistry()
	reg.Define(nsManagement, func(c *schema.Context) error {
		if err := schema.Register[HostedService](c, schema.WithJSONSchema(hostedServiceSchema)); err != nil {
			return err
		}
		return schema.Register[ManagementError](c, schema.WithJSONSchema(managementErrorSchema))
	})
	reg.Define(nsCompute, func(c *schema.Context) error {
		return schema.Register[Deployment](c, schema.WithJSONSchema(deploymentSchema))
	})
	return reg
}

// testCertificate returns the PKCS#12 management certificate opened by
// testPassword.
func testCertificate(t *testing.T) []byte {
	t.Helper()

	raw, err := os.ReadFile("testdata/management.p12.b64")
	require.NoError(t, err)

	der, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(string(raw)), ""))
	require.NoError(t, err)
	return der
}
