package engine

import (
	"errors"
	"fmt"
)

// ErrCapabilityDisabled is the only engine error that crosses the
// boundary to callers; every provider-level failure is absorbed by the
// fallback chain.
var ErrCapabilityDisabled = errors.New("capability disabled")

// ErrUnknownCapability signals a capability id absent from the catalog.
var ErrUnknownCapability = errors.New("unknown capability")

// NormalizationError marks provider output that did not parse into the
// capability's shape. The dispatcher treats it like a transient provider
// failure.
type NormalizationError struct {
	Capability string
	Err        error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: %v", e.Capability, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }
