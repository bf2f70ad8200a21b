package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"gapo-hq/keygate/pkg/config"
)

// NewServerConfig converts cfg into a crypto/tls server configuration whose
// certificate comes from reloader. It returns nil when TLS is disabled.
func NewServerConfig(cfg *config.TLSConfig, reloader *Reloader) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if reloader == nil {
		return nil, fmt.Errorf("tls: a certificate reloader is required")
	}

	minVersion, err := parseTLSVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}
	suites, err := parseCipherSuites(cfg.CipherSuites)
	if err != nil {
		return nil, err
	}

	// #nosec G402 - MinVersion is 1.2 or 1.3
	tlsConfig := &tls.Config{
		GetCertificate: reloader.GetCertificate,
		MinVersion:     minVersion,
		CipherSuites:   suites,
	}

	if cfg.ClientCAFile != "" {
		pool, err := loadCAPool(cfg.ClientCAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = parseClientAuthType(cfg.ClientAuth)
	}

	return tlsConfig, nil
}

func parseTLSVersion(v string) (uint16, error) {
	switch v {
	case "1.3", "":
		return tls.VersionTLS13, nil
	case "1.2":
		return tls.VersionTLS12, nil
	default:
		return 0, fmt.Errorf("tls: unsupported minimum version %q", v)
	}
}

// parseCipherSuites returns nil for an empty list so Go's defaults apply.
func parseCipherSuites(names []string) ([]uint16, error) {
	if len(names) == 0 {
		return nil, nil
	}

	suites := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := cipherSuiteMap[name]
		if !ok {
			return nil, fmt.Errorf("tls: unknown or insecure cipher suite %q", name)
		}
		suites = append(suites, id)
	}
	return suites, nil
}

// cipherSuiteMap lists the accepted TLS 1.2 suites. TLS 1.3 suites are not
// configurable.
var cipherSuiteMap = map[string]uint16{
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":   tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":   tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256": tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384": tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305":    tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305":  tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
}

func loadCAPool(path string) (*x509.CertPool, error) {
	// #nosec G304 - path comes from operator configuration
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tls: failed to read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("tls: no certificates found in %s", path)
	}
	return pool, nil
}

func parseClientAuthType(s string) tls.ClientAuthType {
	switch s {
	case "request":
		return tls.RequestClientCert
	case "verify_if_given":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
