package commands

import (
	"fmt"
	"net/netip"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/systmms/azadapter/internal/config"
	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/pkg/netutil"
)

func NewCIDRCommand(cfg *config.Config) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "cidr <block>",
		Short: "Split a CIDR block into address, mask and prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nc, err := netutil.ParseCIDR(args[0])
			if err != nil {
				return dserrors.UserError{
					Message:    err.Error(),
					Suggestion: "Use an IPv4 block such as 10.0.0.0/16",
					Err:        err,
				}
			}
			cfg.Logger.Object("network", nc)

			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(nc)
			}
			fmt.Fprintf(out, "CIDR:    %s\n", nc.CIDR)
			fmt.Fprintf(out, "IP:      %s\n", nc.IP)
			fmt.Fprintf(out, "Mask:    %s\n", nc.Mask)
			fmt.Fprintf(out, "Prefix:  %d\n", nc.PrefixLength)
			fmt.Fprintf(out, "Numeric: %d\n", nc.NumericMask)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	return cmd
}

func NewDNSCommand(cfg *config.Config) *cobra.Command {
	var (
		servers []string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "dns <name|ip>",
		Short: "Resolve a host name, or reverse-resolve an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []netutil.ResolverOption{netutil.WithTimeout(timeout), netutil.WithResolverLogger(cfg.Logger)}
			if len(servers) > 0 {
				opts = append(opts, netutil.WithServers(servers...))
			}
			resolver, err := netutil.NewResolver(opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := netip.ParseAddr(args[0]); err == nil {
				fqdn := resolver.FQDN(cmd.Context(), args[0])
				if fqdn == "" {
					return dserrors.UserError{Message: fmt.Sprintf("No reverse record for %s", args[0])}
				}
				fmt.Fprintln(out, fqdn)
				return nil
			}

			ips := resolver.Addresses(cmd.Context(), args[0])
			if len(ips) == 0 {
				return dserrors.UserError{Message: fmt.Sprintf("No addresses for %s", args[0])}
			}
			for _, ip := range ips {
				fmt.Fprintln(out, ip)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&servers, "server", nil, "Name server host:port (defaults to resolv.conf)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Timeout per name server")
	return cmd
}
