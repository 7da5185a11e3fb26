package scanning

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrConfigMissing means the provider has no credential or endpoint and was not called
	ErrConfigMissing = errors.New("provider not configured")
	// ErrNetworkFailure wraps transport errors and timeouts
	ErrNetworkFailure = errors.New("network failure")
	// ErrEmptyResult means the provider answered but produced no line items
	ErrEmptyResult = errors.New("empty result")
	// ErrMalformedResponse means the provider answer could not be decoded
	ErrMalformedResponse = errors.New("malformed response")
)

// Outcome is the result class of one provider attempt
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeEmpty   Outcome = "empty"
	OutcomeError   Outcome = "error"
	OutcomeSkipped Outcome = "skipped"
	// OutcomeNotAttempted marks providers left out because the caller gave up
	OutcomeNotAttempted Outcome = "not_attempted"
)

// Classify maps a provider error to an attempt outcome
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrConfigMissing):
		return OutcomeSkipped
	case errors.Is(err, ErrEmptyResult):
		return OutcomeEmpty
	default:
		return OutcomeError
	}
}

// errorClass is a short label for logs
func errorClass(err error) string {
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigMissing):
		return "config_missing"
	case errors.Is(err, ErrEmptyResult):
		return "empty"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrNetworkFailure),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr):
		return "network"
	default:
		return "other"
	}
}
