package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"gapo-hq/keygate/pkg/cli"
	"gapo-hq/keygate/pkg/iam"
	"gapo-hq/keygate/pkg/keycache"
	"gapo-hq/keygate/pkg/telemetry/logging"
)

var keysFlags struct {
	output string
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Inspect the IAM key list",
}

var keysFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the current key list from the IAM authority",
	Long: `Perform one key fetch against the configured IAM authority, merge it into
an empty key cache the way the gate does, and print the cached keys. Keys are
masked; only their source and a short prefix are shown.

Examples:
  keygate keys fetch
  keygate keys fetch --output json`,
	RunE: runKeysFetch,
}

func init() {
	keysFetchCmd.Flags().StringVarP(&keysFlags.output, "output", "o", "text", "output format (text, json, csv)")
	keysCmd.AddCommand(keysFetchCmd)
	rootCmd.AddCommand(keysCmd)
}

// keyRow is one masked key in command output.
type keyRow struct {
	Source string `json:"source"`
	APIKey string `json:"api_key"`
}

// keyList is the result of keys fetch.
type keyList []keyRow

func (l keyList) Header() []string { return []string{"SOURCE", "API KEY"} }

func (l keyList) Rows() [][]string {
	rows := make([][]string, len(l))
	for i, k := range l {
		rows[i] = []string{k.Source, k.APIKey}
	}
	return rows
}

// newKeyList renders a cache snapshot, sorted by source then key.
func newKeyList(keys map[string]string) keyList {
	apiKeys := make([]string, 0, len(keys))
	for k := range keys {
		apiKeys = append(apiKeys, k)
	}
	sort.Slice(apiKeys, func(i, j int) bool {
		if keys[apiKeys[i]] != keys[apiKeys[j]] {
			return keys[apiKeys[i]] < keys[apiKeys[j]]
		}
		return apiKeys[i] < apiKeys[j]
	})

	list := make(keyList, len(apiKeys))
	for i, k := range apiKeys {
		list[i] = keyRow{Source: keys[k], APIKey: logging.RedactAPIKey(k)}
	}
	return list
}

func runKeysFetch(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(keysFlags.output)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(&cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	src, err := newSecretSource(&cfg.Secrets, logger, nil)
	if err != nil {
		return cli.NewConfigError("secrets.file_dir", err.Error())
	}
	defer src.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := newIAMClient(ctx, &cfg.IAM, src)
	if err != nil {
		return cli.NewConfigError("iam", err.Error())
	}

	cache := keycache.New(client, keycache.Options{Logger: logger})
	if err := cache.Refresh(ctx); err != nil {
		if iam.IsFetchError(err) {
			err = &upstreamError{err: err}
		}
		return cli.NewCommandError("keys fetch", err)
	}

	out := cmd.OutOrStdout()
	if err := cli.NewFormatter(format).FormatTo(out, newKeyList(cache.Snapshot())); err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d keys from %s\n", cache.Len(), cfg.IAM.URL)
	}
	return nil
}
