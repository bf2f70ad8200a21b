package reporter

import "context"

// Scope holds diagnostic tags for the request being handled.
type Scope interface {
	SetTags(tags map[string]string)
}

type scopeKey struct{}

// WithScope returns a context carrying scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext returns the request's scope, or a no-op scope.
func ScopeFromContext(ctx context.Context) Scope {
	if s, ok := ctx.Value(scopeKey{}).(Scope); ok && s != nil {
		return s
	}
	return nopScope{}
}

type nopScope struct{}

func (nopScope) SetTags(map[string]string) {}

// MapScope records tags in memory. Used by tests and by the journal path.
type MapScope struct {
	Tags map[string]string
}

// SetTags implements Scope.
func (m *MapScope) SetTags(tags map[string]string) {
	if m.Tags == nil {
		m.Tags = make(map[string]string, len(tags))
	}
	for k, v := range tags {
		m.Tags[k] = v
	}
}
