package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gapo-hq/keygate/pkg/cli"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"config", cli.NewConfigError("iam.url", "required"), cli.ExitConfig},
		{"wrapped config", fmt.Errorf("boot: %w", cli.NewConfigError("", "bad")), cli.ExitConfig},
		{"upstream", cli.NewCommandError("keys fetch", &upstreamError{err: errors.New("503")}), cli.ExitUpstream},
		{"other", errors.New("boom"), cli.ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestConfigPath(t *testing.T) {
	orig := cfgFile
	t.Cleanup(func() { cfgFile = orig })

	cfgFile = "/etc/keygate/custom.yaml"
	assert.Equal(t, "/etc/keygate/custom.yaml", configPath(), "explicit flag value wins")

	cfgFile = ""
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Empty(t, configPath(), "no default file present")

	require.NoError(t, os.WriteFile(filepath.Join(dir, defaultConfigFile), []byte("{}"), 0o600))
	assert.Equal(t, defaultConfigFile, configPath())
}

func TestLoadConfigMissingIAM(t *testing.T) {
	t.Setenv("IAM_API", "")
	t.Setenv("IAM_KEY", "")
	writeConfig(t, "server:\n  listen_address: 127.0.0.1:0\n")

	_, err := loadConfig()
	require.Error(t, err)
	var cfgErr *cli.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "keys", "events", "version"} {
		assert.Contains(t, names, want)
	}
}
