package gate

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"gapo-hq/keygate/pkg/apierror"
	"gapo-hq/keygate/pkg/iam"
	"gapo-hq/keygate/pkg/reqinfo"
	"gapo-hq/keygate/pkg/telemetry/logging"
	"gapo-hq/keygate/pkg/telemetry/reporter"
)

// KeyStore resolves API keys to their source service.
// *keycache.Cache implements it.
type KeyStore interface {
	Lookup(key string) (string, bool)
	RefreshAndLookup(ctx context.Context, key string) (string, bool)
}

// Observer receives every decision, typically to record metrics.
type Observer interface {
	RecordDecision(role, decision, reason string)
}

// Options configures a Gate. Zero values select the defaults.
type Options struct {
	// RoleHeader defaults to x-gapo-role.
	RoleHeader string

	// KeyHeader defaults to x-gapo-api-key.
	KeyHeader string

	// RejectUnclassified rejects requests whose role is neither service
	// nor user instead of letting them through.
	RejectUnclassified bool

	Reporter reporter.Reporter
	Observer Observer
	Tracer   trace.Tracer
	Logger   *slog.Logger
}

// Gate authorizes requests against a KeyStore.
type Gate struct {
	keys               KeyStore
	roleHeader         string
	keyHeader          string
	rejectUnclassified bool
	reporter           reporter.Reporter
	observer           Observer
	tracer             trace.Tracer
	logger             *slog.Logger
}

// New creates a Gate.
func New(keys KeyStore, opts Options) *Gate {
	g := &Gate{
		keys:               keys,
		roleHeader:         opts.RoleHeader,
		keyHeader:          opts.KeyHeader,
		rejectUnclassified: opts.RejectUnclassified,
		reporter:           opts.Reporter,
		observer:           opts.Observer,
		tracer:             opts.Tracer,
		logger:             opts.Logger,
	}
	if g.roleHeader == "" {
		g.roleHeader = iam.HeaderRole
	}
	if g.keyHeader == "" {
		g.keyHeader = iam.HeaderAPIKey
	}
	if g.reporter == nil {
		g.reporter = reporter.Nop{}
	}
	if g.tracer == nil {
		g.tracer = noop.NewTracerProvider().Tracer("keygate/gate")
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.logger = g.logger.With("component", "gate")
	return g
}

// Authorize decides whether r may proceed. It tags the request's telemetry
// scope with the request headers and URI before deciding.
func (g *Gate) Authorize(r *http.Request) Outcome {
	ctx, span := g.tracer.Start(r.Context(), "gate.Authorize")
	defer span.End()

	g.tagScope(ctx, r)

	out := g.decide(ctx, r)

	span.SetAttributes(
		attribute.String("gate.role", string(out.Role)),
		attribute.String("gate.decision", string(out.Decision)),
		attribute.String("gate.reason", string(out.Reason)),
		attribute.Bool("gate.refreshed", out.Refreshed()),
	)
	if g.observer != nil {
		g.observer.RecordDecision(string(out.Role), string(out.Decision), string(out.Reason))
	}
	return out
}

func (g *Gate) decide(ctx context.Context, r *http.Request) Outcome {
	out := Outcome{Path: []Step{StepStart}}

	out.Role = ParseRole(r.Header.Get(g.roleHeader))
	out.Path = append(out.Path, StepRoleClassified)

	switch out.Role {
	case RoleUser:
		out.Path = append(out.Path, StepUserAccepted)
		return out.accept(ReasonUserRole, "")
	case RoleUnclassified:
		if g.rejectUnclassified {
			return out.reject(ReasonUnclassified)
		}
		out.Path = append(out.Path, StepUserAccepted)
		return out.accept(ReasonUnclassified, "")
	}

	key := r.Header.Get(g.keyHeader)
	if key == "" {
		return out.reject(ReasonKeyMissing)
	}

	out.Path = append(out.Path, StepServiceKeyChecked)
	if source, ok := g.keys.Lookup(key); ok {
		return out.accept(ReasonCacheHit, source)
	}

	out.Path = append(out.Path, StepRefreshTriggered)
	source, ok := g.keys.RefreshAndLookup(ctx, key)
	out.Path = append(out.Path, StepRechecked)
	if ok {
		return out.accept(ReasonRefreshHit, source)
	}
	return out.reject(ReasonKeyUnknown)
}

func (o Outcome) accept(reason Reason, source string) Outcome {
	o.Decision = DecisionAccepted
	o.Reason = reason
	o.Source = source
	o.Path = append(o.Path, StepAccepted)
	return o
}

func (o Outcome) reject(reason Reason) Outcome {
	o.Decision = DecisionRejected
	o.Reason = reason
	o.Path = append(o.Path, StepRejected)
	return o
}

// requestInfo extracts r's diagnostic context with the configured key
// header marked sensitive.
func (g *Gate) requestInfo(r *http.Request) reqinfo.Info {
	return reqinfo.FromRequest(r).WithSensitive(g.keyHeader)
}

// tagScope never lets a misbehaving scope affect the decision.
func (g *Gate) tagScope(ctx context.Context, r *http.Request) {
	defer func() { _ = recover() }()
	reporter.ScopeFromContext(ctx).SetTags(g.requestInfo(r).Redacted().TagSet())
}

// Middleware authorizes each request. Rejected requests are reported and
// answered with the standard 403 body; next is not called.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := g.Authorize(r)

		ctx := logging.WithRole(r.Context(), string(out.Role))
		if !out.Accepted() {
			info := g.requestInfo(r)
			apiErr := apierror.InvalidRequest(string(out.Reason), &info)
			ev, reported := reporter.ReportError(ctx, g.reporter, apiErr)
			g.logger.WarnContext(ctx, "request rejected",
				"reason", out.Reason,
				"path", r.URL.Path,
				"event_id", ev.ID,
				"reported", reported,
			)
			apiErr.WriteJSON(w)
			return
		}

		if out.Source != "" {
			ctx = WithSource(ctx, out.Source)
			ctx = logging.WithSource(ctx, out.Source)
		}
		g.logger.DebugContext(ctx, "request accepted", "reason", out.Reason)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type sourceKey struct{}

// WithSource returns ctx carrying the calling service's name.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFromContext returns the calling service set by the gate for an
// accepted service request.
func SourceFromContext(ctx context.Context) (string, bool) {
	source, ok := ctx.Value(sourceKey{}).(string)
	return source, ok
}
