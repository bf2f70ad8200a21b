package iam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Client fetches API keys from the IAM authority.
type Client struct {
	cfg      Config
	apiKey   atomic.Pointer[string]
	http     *http.Client
	tracer   trace.Tracer
	observer Observer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTracer records a span for every fetch.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithObserver reports fetch outcomes, typically to metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a Client. URL and APIKey are required.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("iam: url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("iam: api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		tracer: noop.NewTracerProvider().Tracer("keygate/iam"),
	}
	c.apiKey.Store(&cfg.APIKey)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetAPIKey replaces the key presented to the authority, for rotation.
// Empty keys are ignored.
func (c *Client) SetAPIKey(key string) {
	if key == "" {
		return
	}
	c.apiKey.Store(&key)
}

// FetchKeys returns the authority's current full key list.
func (c *Client) FetchKeys(ctx context.Context) ([]APIKeyRecord, error) {
	ctx, span := c.tracer.Start(ctx, "iam.FetchKeys", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	records, err := c.fetch(ctx)

	outcome := OutcomeSuccess
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			outcome = string(fe.Kind)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("iam.keys", len(records)))
		span.SetStatus(codes.Ok, "")
	}
	if c.observer != nil {
		c.observer.ObserveFetch(outcome, len(records), time.Since(start))
	}
	return records, err
}

func (c *Client) fetch(ctx context.Context) ([]APIKeyRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Cause: err}
	}
	req.Header.Set(HeaderRole, RoleService)
	req.Header.Set(HeaderAPIKey, *c.apiKey.Load())
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
		return nil, &FetchError{Kind: KindStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, &FetchError{
			Kind:  KindDecode,
			Cause: fmt.Errorf("response body exceeds %d bytes", c.cfg.MaxBodyBytes),
		}
	}

	return decodeKeys(body)
}

func decodeKeys(body []byte) ([]APIKeyRecord, error) {
	var parsed keysResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &FetchError{Kind: KindDecode, Cause: err}
	}
	if parsed.Data == nil {
		return nil, &FetchError{Kind: KindDecode, Cause: errors.New(`missing "data" field`)}
	}
	return *parsed.Data, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Cause: err}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, Cause: err}
	}
	return &FetchError{Kind: KindTransport, Cause: err}
}
