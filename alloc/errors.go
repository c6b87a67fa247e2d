package alloc

import "errors"

var (
	// ErrSchemaMismatch is returned when a sample or a seed count vector does not
	// carry exactly the configured feature set.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrInvalidConfiguration is returned when an Allocator cannot be built from
	// the supplied configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
