// Package tls builds the listener TLS configuration for keygate.
//
// The server certificate is served through a Reloader, so a renewed
// certificate on disk is picked up without a restart. When a client CA is
// configured, client certificates are verified as well.
//
//	reloader, err := tls.NewReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
//	if err != nil {
//		return err
//	}
//	reloader.Start(ctx)
//	defer reloader.Stop()
//
//	tlsConfig, err := tls.NewServerConfig(cfg, reloader)
package tls
