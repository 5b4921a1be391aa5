package fmindex

import "errors"

var (
	// ErrCorrupt is returned when an encoded index fails validation.
	ErrCorrupt = errors.New("fmindex: corrupt index")
	// ErrIncompatibleFormat is returned for an unknown magic or version.
	ErrIncompatibleFormat = errors.New("fmindex: incompatible format")
	// ErrInvalidOptions is returned for unusable build parameters.
	ErrInvalidOptions = errors.New("fmindex: invalid options")
	// ErrTooLarge is returned when the reference exceeds 32-bit addressing.
	ErrTooLarge = errors.New("fmindex: reference too large")
	// ErrInvalidFASTA is returned for malformed FASTA input.
	ErrInvalidFASTA = errors.New("fmindex: invalid FASTA")
)
