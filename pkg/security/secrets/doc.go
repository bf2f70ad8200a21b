// Package secrets resolves ${secret:name} references in configuration.
//
// Values come from a chain of providers tried in order. EnvProvider reads
// prefixed environment variables (KEYGATE_SECRET_IAM_KEY for "iam-key").
// FileProvider reads one file per secret from a directory, the layout
// Kubernetes uses for mounted secrets, and can watch the directory so a
// rotated file is picked up without a restart.
//
//	manager := secrets.NewManager(providers, secrets.CacheConfig{Enabled: true, TTL: ttl, MaxSize: 64})
//	apiKey, err := manager.ResolveReferences(ctx, cfg.IAM.APIKey)
package secrets
