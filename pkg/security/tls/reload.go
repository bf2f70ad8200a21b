package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ErrNoCertificate is returned by GetCertificate before the first load.
var ErrNoCertificate = errors.New("tls: no certificate loaded")

// Reloader serves a certificate pair from disk and reloads it when either
// file's modification time changes.
type Reloader struct {
	certFile string
	keyFile  string
	interval time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	cert     *tls.Certificate
	leaf     *x509.Certificate
	certTime time.Time
	keyTime  time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReloader loads the certificate pair. A zero interval disables
// background reloading.
func NewReloader(certFile, keyFile string, interval time.Duration, logger *slog.Logger) (*Reloader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reloader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: interval,
		logger:   logger.With("component", "tls.reloader"),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	r.logCertificateInfo()
	return r, nil
}

// Start polls the files every interval until ctx is cancelled or Stop is
// called. It is a no-op when the interval is zero or the loop is running.
func (r *Reloader) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.interval <= 0 || r.done != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.reloadLoop(ctx, r.done)
}

// Stop ends the polling loop and waits for it to exit.
func (r *Reloader) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Reloader) reloadLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !r.needsReload() {
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Error("failed to reload certificate",
					"error", err,
					"cert_file", r.certFile,
					"key_file", r.keyFile,
				)
				continue
			}
			r.logger.Info("certificate reloaded", "cert_file", r.certFile)
			r.logCertificateInfo()
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reloader) needsReload() bool {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return !certInfo.ModTime().Equal(r.certTime) || !keyInfo.ModTime().Equal(r.keyTime)
}

// Reload reads both files now. On error the previous certificate stays in
// use.
func (r *Reloader) Reload() error {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return err
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return err
	}

	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}
	leaf, err := ValidateCertificate(&cert)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = &cert
	r.leaf = leaf
	r.certTime = certInfo.ModTime()
	r.keyTime = keyInfo.ModTime()
	r.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *Reloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cert == nil {
		return nil, ErrNoCertificate
	}
	return r.cert, nil
}

// NotAfter returns the expiry of the current leaf certificate.
func (r *Reloader) NotAfter() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.leaf == nil {
		return time.Time{}
	}
	return r.leaf.NotAfter
}

func (r *Reloader) logCertificateInfo() {
	r.mu.RLock()
	leaf := r.leaf
	r.mu.RUnlock()
	if leaf == nil {
		return
	}

	days, warning := CheckCertificateExpiration(leaf, time.Now())
	if warning != "" {
		r.logger.Warn("certificate expiring soon",
			"subject", leaf.Subject.CommonName,
			"expires_in_days", days,
			"expires_at", leaf.NotAfter.Format(time.RFC3339),
		)
		return
	}
	r.logger.Info("certificate loaded",
		"subject", leaf.Subject.CommonName,
		"issuer", leaf.Issuer.CommonName,
		"expires_in_days", days,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	)
}
