package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// MinimalConfig returns a valid configuration with only required fields set.
func MinimalConfig() *Config {
	cfg := NewDefault()
	cfg.IAM.URL = "http://iam.internal/api/v1/keys"
	cfg.IAM.APIKey = "bootstrap-key"
	return cfg
}

// clearDeploymentEnv neutralizes variables the host may already define.
func clearDeploymentEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"SERVER", "IAM_API", "IAM_KEY", "SENTRY_URI", "ENV"} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keygate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
