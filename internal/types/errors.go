package types

import "errors"

// Error kinds shared across the engine. Packages wrap these with %w and a
// context string; nothing below the query engine recovers from them.
var (
	ErrSerialization = errors.New("serialization error")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrInvalidData   = errors.New("invalid data")
	ErrSchema        = errors.New("schema error")
	ErrStorage       = errors.New("storage error")
	ErrQuery         = errors.New("query error")
	ErrConcurrency   = errors.New("concurrency error")
)
