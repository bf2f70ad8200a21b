package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gapo-hq/keygate/pkg/telemetry/journal"
)

// KeySource is the part of the key cache the readiness check needs.
type KeySource interface {
	Len() int
	LastRefresh() time.Time
}

// ErrNoKeys is returned by KeyCacheCheck when keys are required but the
// cache is empty.
var ErrNoKeys = errors.New("key cache is empty")

// KeyCacheCheck reports the key cache as unhealthy when requireKeys is set
// and no key has been loaded yet. Without requireKeys an empty cache is
// fine, since the first request will trigger a refresh.
func KeyCacheCheck(cache KeySource, requireKeys bool) CheckFunc {
	return func(_ context.Context) error {
		if !requireKeys {
			return nil
		}
		if cache.Len() == 0 {
			if last := cache.LastRefresh(); !last.IsZero() {
				return fmt.Errorf("%w (last refresh %s)", ErrNoKeys, last.Format(time.RFC3339))
			}
			return ErrNoKeys
		}
		return nil
	}
}

// JournalCheck verifies that the rejection journal answers queries.
func JournalCheck(store journal.Store) CheckFunc {
	return func(ctx context.Context) error {
		_, err := store.Count(ctx, journal.Filter{Since: time.Now()})
		return err
	}
}

// Expirer reports when the served certificate expires.
type Expirer interface {
	NotAfter() time.Time
}

// CertificateCheck fails once the served certificate has expired.
func CertificateCheck(cert Expirer) CheckFunc {
	return func(_ context.Context) error {
		notAfter := cert.NotAfter()
		if notAfter.IsZero() {
			return errors.New("no certificate loaded")
		}
		if time.Now().After(notAfter) {
			return fmt.Errorf("certificate expired on %s", notAfter.Format(time.RFC3339))
		}
		return nil
	}
}
