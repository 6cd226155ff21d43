// Package profile implements the cache-aside profile lookup: the normalized
// Record schema, decoding and normalization of the upstream document, the
// error taxonomy, and the Service that ties cache and upstream together.
//
// # Lookup Flow
//
//	CacheLookup -> hit  -> Return(record)
//	            -> miss -> UpstreamFetch -> error -> Return(error)
//	                                     -> ok    -> Normalize -> CacheWrite -> Return(record)
//
// Cache read failures are treated as misses and cache write failures are
// logged and ignored. Nothing is written for a failed fetch.
//
// # Errors
//
// Failures are returned as *Error and match one of ErrNotFound,
// ErrProfilePrivate, ErrUpstreamUnavailable, ErrMalformedResponse or
// ErrInternal with errors.Is. Cancellation is reported as the context error.
package profile
