/*
Package security groups keygate's transport security and secret handling.

# Listener TLS

Subpackage tls serves the configured certificate through a Reloader, so
renewed certificates are picked up without a restart:

	reloader, err := tls.NewReloader(certFile, keyFile, 5*time.Minute, logger)
	if err != nil {
		return err
	}
	tlsConfig, err := tls.NewServerConfig(&cfg.Server.TLS, reloader)

# Secrets

Subpackage secrets resolves ${secret:name} references in configuration,
most importantly the IAM bootstrap key:

	manager := secrets.NewManager([]secrets.SecretProvider{
		files,
		secrets.NewEnvProvider("KEYGATE_SECRET_"),
	}, secrets.CacheConfig{Enabled: true, TTL: 5 * time.Minute})

	key, err := manager.ResolveReferences(ctx, cfg.IAM.APIKey)

A watched file provider reports changes, which keygate uses to rotate the
bootstrap key in place.
*/
package security
