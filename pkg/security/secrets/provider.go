package secrets

import "context"

// SecretProvider retrieves secrets from one backend.
type SecretProvider interface {
	// GetSecret returns the value of the named secret.
	GetSecret(ctx context.Context, name string) (string, error)

	// ListSecrets returns the names of the available secrets, never values.
	ListSecrets(ctx context.Context) ([]string, error)

	// Provider returns the provider name.
	Provider() string

	// Supports reports whether this provider may hold the named secret.
	Supports(name string) bool
}

// RefreshableProvider can drop what it has cached and reload.
type RefreshableProvider interface {
	SecretProvider
	Refresh(ctx context.Context) error
}
