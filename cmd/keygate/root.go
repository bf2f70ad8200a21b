package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gapo-hq/keygate/pkg/cli"
	"gapo-hq/keygate/pkg/config"
)

// defaultConfigFile is used when --config is not given and the file exists.
const defaultConfigFile = "keygate.yaml"

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "keygate",
	Short: "keygate - API key authorization gate for service-to-service traffic",
	Long: `keygate authorizes inbound requests before they reach the API.

Requests are classified by the x-gapo-role header:
  - user traffic is accepted without a key check
  - service traffic must carry an x-gapo-api-key issued by the IAM authority
  - rejected calls get a 403 with {"message","http_code","code":901}

Valid keys are cached in memory and refreshed from the IAM authority when an
unknown key arrives.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default keygate.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configPath returns the file to load. An empty result means defaults and
// environment only.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if config.FileExists(defaultConfigFile) {
		return defaultConfigFile
	}
	return ""
}

// loadConfig loads and validates configuration for a subcommand.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(configPath())
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

func exitCode(err error) int {
	var cfgErr *cli.ConfigError
	if errors.As(err, &cfgErr) {
		return cli.ExitConfig
	}
	var upstream *upstreamError
	if errors.As(err, &upstream) {
		return cli.ExitUpstream
	}
	return cli.ExitError
}

// upstreamError marks a failure of the IAM authority rather than of keygate.
type upstreamError struct {
	err error
}

func (e *upstreamError) Error() string { return e.err.Error() }

func (e *upstreamError) Unwrap() error { return e.err }
