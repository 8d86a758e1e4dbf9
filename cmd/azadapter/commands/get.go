package commands

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/spf13/cobra"
	"github.com/systmms/azadapter/internal/config"
	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/pkg/azure"
	"github.com/systmms/azadapter/pkg/canonical"
	"github.com/systmms/azadapter/pkg/credstore"
	"github.com/systmms/azadapter/pkg/schema"
)

// managementError is the error body the management API returns.
type managementError struct {
	XMLName xml.Name `xml:"Error" json:"-"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		params         []string
		keyringService string
		keyringAccount string
	)

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Send a GET request to the management API",
		Long: `Send a GET request relative to the subscription in the connection profile
and print the response body.

The management certificate comes from the profile. When the profile has none,
the OS keyring entry for the subscription is used instead.

Examples:
  # List hosted services
  azadapter get services/hostedservices

  # Pass query parameters
  azadapter get services/hostedservices/web --param embed-detail=true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			registry := schema.NewRegistry(schema.WithLogger(cfg.Logger))
			registry.Define(cfg.Profile.Endpoint.Namespace, func(c *schema.Context) error {
				return schema.Register[managementError](c)
			})

			profile, err := azure.LoadProfile[managementError](cfg.Path, registry, cfg.Logger)
			if err != nil {
				return err
			}

			cred := profile.Credential
			if !cred.Usable() {
				account := keyringAccount
				if account == "" {
					account = profile.Endpoint.Subscription()
				}
				cred, err = credstore.NewKeyring(keyringService, credstore.WithKeyringLogger(cfg.Logger)).Load(account)
				if err != nil {
					return err
				}
			}

			conn, err := profile.ConnectWith(cred, azure.WithLogger(cfg.Logger))
			if err != nil {
				return err
			}

			query, err := parseParams(params)
			if err != nil {
				return err
			}

			resp, err := conn.Get(args[0], query).Await(cmd.Context())
			if err != nil {
				return dserrors.ServiceManagementError("GET "+args[0], err)
			}
			defer resp.Body.Close()

			body, err := runtime.Payload(resp)
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			if resp.StatusCode >= http.StatusBadRequest {
				failure := dserrors.UserError{
					Message: fmt.Sprintf("Management API returned %s", resp.Status),
					Details: strings.TrimSpace(string(body)),
				}
				if apiErr, err := azure.Decode[managementError](conn.Endpoint(), resp); err == nil && apiErr.Code != "" {
					failure.Message = fmt.Sprintf("Management API returned %s: %s", apiErr.Code, apiErr.Message)
					failure.Details = ""
				}
				if resp.StatusCode == http.StatusForbidden {
					failure.Suggestion = "Check that the management certificate is uploaded to the subscription"
				}
				return failure
			}

			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "Query parameter as name=value or name (repeatable)")
	cmd.Flags().StringVar(&keyringService, "keyring-service", credstore.DefaultKeyringService, "Keyring service holding fallback credentials")
	cmd.Flags().StringVar(&keyringAccount, "keyring-account", "", "Keyring account (defaults to the subscription)")

	return cmd
}

func parseParams(params []string) (*canonical.QueryParams, error) {
	q := canonical.NewQueryParams()
	for _, p := range params {
		name, value, hasValue := strings.Cut(p, "=")
		if name == "" {
			return nil, dserrors.UserError{
				Message:    fmt.Sprintf("Invalid query parameter %q", p),
				Suggestion: "Use --param name=value or --param name",
			}
		}
		if hasValue {
			q.Add(name, value)
		} else {
			q.AddFlag(name)
		}
	}
	return q, nil
}
