package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/azadapter/cmd/azadapter/commands"
	"github.com/systmms/azadapter/internal/config"
	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run() error {
	var (
		profilePath string
		noColor     bool
		debug       bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "azadapter",
		Short: "Azure Service Management adapter",
		Long: `azadapter talks to the Azure Service Management API with a management
certificate, and carries the helpers the adapter needs around it: shared-key
signing, credential storage and network decomposition.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = profilePath
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "azadapter.yaml", "Connection profile path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewGetCommand(cfg),
		commands.NewCredentialCommand(cfg),
		commands.NewSignCommand(cfg),
		commands.NewCIDRCommand(cfg),
		commands.NewDNSCommand(cfg),
	)

	return rootCmd.Execute()
}
