// Package keycache holds the process-wide mapping from service API key to
// the source service that owns it.
//
// Reads go through an immutable snapshot behind an atomic pointer and never
// block. A refresh fetches the authority's full key list outside of any
// lock, then merges it into a copy of the current mapping and publishes the
// copy in one atomic store. Readers therefore see either the mapping before
// a merge or the mapping after it, never a partial merge.
//
// Refreshes only add or overwrite entries. A key revoked at the authority
// stays valid in this process until restart.
package keycache
