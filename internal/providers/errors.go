package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// FailureKind classifies a provider failure. Only the transient/terminal
// distinction changes routing; the finer grain is kept for observability
// and for the availability cache.
type FailureKind string

const (
	FailureTransient     FailureKind = "transient"
	FailureRateLimited   FailureKind = "rate_limited"
	FailureQuotaExceeded FailureKind = "quota_exceeded"
	FailureInvalidKey    FailureKind = "invalid_key"
	FailureUnknown       FailureKind = "unknown_error"
)

// Retryable reports whether one in-place retry is worth attempting.
// Auth and quota failures are terminal for the provider; the dispatcher
// moves on immediately.
func (k FailureKind) Retryable() bool {
	return k == FailureTransient || k == FailureRateLimited
}

// Terminal reports whether the failure should mark the provider
// unavailable for the rest of the cache TTL.
func (k FailureKind) Terminal() bool {
	return k == FailureInvalidKey || k == FailureQuotaExceeded
}

type Error struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error, defaulting to unknown.
func KindOf(err error) FailureKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailureUnknown
}

// classifyStatus maps an HTTP-level provider failure onto a FailureKind.
// 429 usually means rate limiting, but some backends report exhausted
// quota with the same status and a telltale message.
func classifyStatus(provider string, status int, err error) *Error {
	kind := FailureUnknown
	switch {
	case status == 401 || status == 403:
		kind = FailureInvalidKey
	case status == 402:
		kind = FailureQuotaExceeded
	case status == 429:
		kind = FailureRateLimited
		if err != nil && containsAny(strings.ToLower(err.Error()), "quota", "billing", "insufficient") {
			kind = FailureQuotaExceeded
		}
	case status == 408 || status >= 500:
		kind = FailureTransient
	}
	return &Error{Provider: provider, Kind: kind, Err: err}
}

// classifyTransport handles failures that never produced an HTTP status.
func classifyTransport(provider string, err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Provider: provider, Kind: FailureTransient, Err: err}
	case errors.As(err, &netErr):
		return &Error{Provider: provider, Kind: FailureTransient, Err: err}
	}
	return &Error{Provider: provider, Kind: FailureUnknown, Err: err}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
