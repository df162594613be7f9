package tx

import "errors"

// ErrAmountOverflow is returned when summing output amounts would
// overflow a uint64.
var ErrAmountOverflow = errors.New("tx: output amount sum overflows uint64")

// ErrTruncated is returned when a wire-format buffer ends before a
// field it promised to carry.
var ErrTruncated = errors.New("tx: truncated transaction encoding")

// ErrUnknownInputType is returned when an input's wire tag is neither
// the base-input nor the key-input marker.
var ErrUnknownInputType = errors.New("tx: unknown input wire tag")
