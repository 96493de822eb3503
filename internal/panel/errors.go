package panel

import "errors"

var (
	// ErrInvalidArgument marks a call rejected because of its arguments
	// (day count, bank set, threshold).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedRecord marks a panel entry with a missing field or a value
	// outside its allowed range.
	ErrMalformedRecord = errors.New("malformed record")
)
