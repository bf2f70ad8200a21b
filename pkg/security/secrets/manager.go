package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
)

var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// ErrSecretNotFound is returned when no provider holds a secret.
var ErrSecretNotFound = errors.New("secret not found")

// Manager resolves secrets through an ordered provider chain and caches
// the results.
type Manager struct {
	providers []SecretProvider
	cache     *Cache
	logger    *slog.Logger
}

// NewManager creates a manager. Providers are tried in order.
func NewManager(providers []SecretProvider, cacheConfig CacheConfig) *Manager {
	return &Manager{
		providers: providers,
		cache:     NewCache(cacheConfig),
		logger:    slog.Default(),
	}
}

// SetLogger replaces the manager's logger.
func (m *Manager) SetLogger(logger *slog.Logger) {
	m.logger = logger
}

// HasReferences reports whether s contains a ${secret:name} reference.
func HasReferences(s string) bool {
	return secretRefRegex.MatchString(s)
}

// GetSecret returns the value from the first provider that has it.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.Get(name); ok {
		return value, nil
	}

	var errs []error
	for _, provider := range m.providers {
		if !provider.Supports(name) {
			continue
		}
		value, err := provider.GetSecret(ctx, name)
		if err != nil {
			m.logger.Debug("secret provider miss",
				"provider", provider.Provider(),
				"name", redactSecretName(name),
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		m.cache.Set(name, value)
		return value, nil
	}

	if len(errs) > 0 {
		return "", fmt.Errorf("%w: %q: %w", ErrSecretNotFound, name, errors.Join(errs...))
	}
	return "", fmt.Errorf("%w: %q", ErrSecretNotFound, name)
}

// ResolveReferences replaces every ${secret:name} in input. References that
// cannot be resolved are left in place and reported in the returned error.
func (m *Manager) ResolveReferences(ctx context.Context, input string) (string, error) {
	var errs []error
	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := secretRefRegex.FindStringSubmatch(match)[1]
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return value
	})
	return output, errors.Join(errs...)
}

// Refresh reloads every refreshable provider and clears the cache.
func (m *Manager) Refresh(ctx context.Context) error {
	var errs []error
	for _, provider := range m.providers {
		refreshable, ok := provider.(RefreshableProvider)
		if !ok {
			continue
		}
		if err := refreshable.Refresh(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", provider.Provider(), err))
		}
	}
	m.cache.Clear()
	return errors.Join(errs...)
}

// ListSecrets returns the sorted, de-duplicated names across providers.
func (m *Manager) ListSecrets(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, provider := range m.providers {
		names, err := provider.ListSecrets(ctx)
		if err != nil {
			m.logger.Warn("failed to list secrets", "provider", provider.Provider(), "error", err)
			continue
		}
		for _, name := range names {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
