// Package gate authorizes inbound requests.
//
// Every request is classified by its role header. End-user traffic passes
// straight through. Service traffic must present an API key that the key
// cache knows; on a miss the cache is refreshed from IAM once and the key is
// checked again. Rejected requests get the standard 403 body and are
// reported to telemetry.
//
//	g := gate.New(cache, gate.Options{Reporter: rep, Observer: collector})
//	router.With(g.Middleware).Get("/", index)
//
// Downstream handlers can read the calling service with SourceFromContext.
package gate
