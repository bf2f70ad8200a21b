// Package iam fetches the set of valid service API keys from the IAM
// authority.
//
// The client makes exactly one GET per call, authenticated with the gate's
// own bootstrap key, and returns the full key list. It holds no state
// between calls. Every failure is a *FetchError; callers are expected to
// treat all of them the same way, as "no update available".
//
// # Usage
//
//	client, err := iam.NewClient(iam.Config{
//	    URL:     "https://iam.internal/api/v1/keys",
//	    APIKey:  bootstrapKey,
//	    Timeout: 5 * time.Second,
//	})
//	records, err := client.FetchKeys(ctx)
package iam
