// Package kvstore wraps a persistent string-keyed store with JSON encoding.
// Every public operation on Store is fail-soft: backend and encoding failures
// are logged and turned into the documented fallback value.
package kvstore
