// Package filter implements the fixed HPF -> LPF -> AGC voice processing
// chain applied in-place to each captured Frame before it is encoded or
// queued. All state is per-channel and persists across calls to Process on
// the same stream; Reconfigure resets it.
package filter

import "errors"

// ErrSizeMismatch indicates Process was called with a slice whose length
// does not equal the configured frame size.
var ErrSizeMismatch = errors.New("filter: frame size mismatch")
