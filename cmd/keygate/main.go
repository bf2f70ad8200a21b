// keygate is an authorization gate for a service-to-service HTTP API.
//
// Each inbound request is classified by its x-gapo-role header. User traffic
// passes through; service traffic must present an x-gapo-api-key that the
// IAM authority currently issues. Keys are cached in memory and refreshed on
// a miss, so a known key costs no network round-trip.
//
// Usage:
//
//	# Start the server with configuration from keygate.yaml and the environment
//	keygate run
//
//	# Start with a custom configuration file
//	keygate run --config /etc/keygate/keygate.yaml
//
//	# Fetch the current key list from the IAM authority (keys are masked)
//	keygate keys fetch
//
//	# List journaled rejections from the last hour
//	keygate events list --since 1h
//
//	# Show version information
//	keygate version
package main

func main() {
	Execute()
}
