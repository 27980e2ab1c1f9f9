package ratelimit

import "errors"

var (
	// ErrStoreRequired indicates that no storage backend was provided.
	ErrStoreRequired = errors.New("ratelimit: store is required")

	// ErrInvalidLimit indicates a non-positive request limit.
	ErrInvalidLimit = errors.New("ratelimit: limit must be positive")

	// ErrInvalidWindow indicates a non-positive window duration.
	ErrInvalidWindow = errors.New("ratelimit: window must be positive")

	// ErrKeyRequired indicates an empty rate limit key.
	ErrKeyRequired = errors.New("ratelimit: key is required")
)
