package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider loads secrets from environment variables. The secret
// "iam-key" with prefix "KEYGATE_SECRET_" is read from
// KEYGATE_SECRET_IAM_KEY.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates an environment variable provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// GetSecret reads the secret's environment variable. An empty variable is
// treated as missing.
func (p *EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	envVar := p.envVar(name)
	value, ok := os.LookupEnv(envVar)
	if !ok || value == "" {
		return "", fmt.Errorf("secret not found in environment: %s (env var: %s)", name, envVar)
	}
	return value, nil
}

// ListSecrets returns the names of all prefixed environment variables.
func (p *EnvProvider) ListSecrets(_ context.Context) ([]string, error) {
	var names []string
	for _, env := range os.Environ() {
		key, _, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, p.Prefix) || key == p.Prefix {
			continue
		}
		names = append(names, strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, p.Prefix), "_", "-")))
	}
	return names, nil
}

// Provider returns "env".
func (p *EnvProvider) Provider() string {
	return "env"
}

// Supports always returns true so the environment acts as the fallback.
func (p *EnvProvider) Supports(string) bool {
	return true
}

func (p *EnvProvider) envVar(name string) string {
	return p.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
