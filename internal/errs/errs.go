// Package errs holds the sentinel errors shared across packages.
package errs

import "errors"

var (
	ErrEmptyMessage      = errors.New("no message received")
	ErrNoMatch           = errors.New("no matching mission")
	ErrMalformedResponse = errors.New("malformed response")
	ErrEmptyCorpus       = errors.New("mission corpus is empty")
)
