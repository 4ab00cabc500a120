// Package apperr defines the error taxonomy shared across Ekko.
//
// Two tiers exist: structural failures (the source is missing,
// unreadable, or not a recognizable export) surface as one of these
// sentinels; record-level failures never become errors at all, they
// are reported through the skip observer and streaming continues.
package apperr

import "errors"

var (
	// ErrNotFound reports a source path that does not exist, or a
	// conversation/message id with no match in the source.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied reports a source path that exists but cannot be read.
	ErrAccessDenied = errors.New("access denied")

	// ErrDecodeFailure reports a source whose top-level structure is not
	// a valid JSON array, or whose byte stream breaks mid-array.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrValidation reports an invalid query or configuration constructed
	// by the caller.
	ErrValidation = errors.New("validation failure")

	// ErrUnsupportedSchema reports a source whose structural shape no
	// provider recognizes.
	ErrUnsupportedSchema = errors.New("unsupported schema")
)
