package iam

import "time"

// Default client settings.
const (
	DefaultTimeout      = 5 * time.Second
	DefaultMaxBodyBytes = 4 << 20
)

// Request headers sent to the authority.
const (
	HeaderRole   = "x-gapo-role"
	HeaderAPIKey = "x-gapo-api-key"
	RoleService  = "service"
)

// APIKeyRecord is one valid key and the service that owns it.
type APIKeyRecord struct {
	APIKey string `json:"apiKey"`
	Source string `json:"source"`
}

// keysResponse is the authority's response body.
type keysResponse struct {
	Data *[]APIKeyRecord `json:"data"`
}

// Config configures a Client.
type Config struct {
	// URL is the authority's key-list endpoint.
	URL string

	// APIKey is the gate's own bootstrap credential.
	APIKey string

	// Timeout bounds a single fetch. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxBodyBytes caps the response body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Observer receives the outcome of every fetch.
type Observer interface {
	ObserveFetch(outcome string, keys int, duration time.Duration)
}

// Fetch outcomes passed to Observer.
const (
	OutcomeSuccess = "success"
)
