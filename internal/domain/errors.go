package domain

import crerr "github.com/cockroachdb/errors"

var (
	// ErrConfiguration is returned when required settings are missing or invalid.
	ErrConfiguration = crerr.New("configuration error")

	// ErrTransientUpstream marks upstream failures worth retrying (network, 429, 5xx).
	ErrTransientUpstream = crerr.New("transient upstream error")

	// ErrDatasetUnavailable means the upstream has no usable data for a scope.
	ErrDatasetUnavailable = crerr.New("dataset unavailable")

	// ErrMalformedPayload means an upstream response did not match its schema.
	ErrMalformedPayload = crerr.New("malformed upstream payload")

	ErrCacheWrite   = crerr.New("cache write failed")
	ErrStorageWrite = crerr.New("storage write failed")
)
