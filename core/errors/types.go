// Package errors implements a 5-tier error taxonomy shared by the ldsi tooling.
// Tiers drive retry behavior at the probe boundary and exit-code mapping in the
// CLI; the scoring core itself only ever produces invalid-input errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorTier represents the classification tier for errors.
// Each tier has defined behavior for retry policy and user notification.
type ErrorTier int

const (
	// TierTransient indicates temporary errors that should be silently retried.
	// Examples: network timeouts, connection resets.
	TierTransient ErrorTier = iota

	// TierPermanent indicates errors that will not resolve with retry.
	// Examples: compression engine failure, audit chain breakage.
	TierPermanent

	// TierUserFixable indicates errors that require user intervention.
	// Examples: invalid input text, missing API key, unknown model.
	TierUserFixable

	// TierExternalRateLimit indicates rate limiting from a model provider.
	TierExternalRateLimit

	// TierExternalDegrading indicates provider degradation.
	// Examples: 5xx responses, truncated completions.
	TierExternalDegrading
)

var tierNames = map[ErrorTier]string{
	TierTransient:         "transient",
	TierPermanent:         "permanent",
	TierUserFixable:       "user_fixable",
	TierExternalRateLimit: "external_rate_limit",
	TierExternalDegrading: "external_degrading",
}

func (t ErrorTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// TierBehavior defines the handling behavior for an error tier.
type TierBehavior struct {
	// ShouldRetry indicates whether errors of this tier should be retried.
	ShouldRetry bool

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// BaseBackoff is the initial backoff duration.
	BaseBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// ShouldNotify indicates whether to surface the error to the user.
	ShouldNotify bool
}

// DefaultBehaviors returns the default behavior for each error tier.
func DefaultBehaviors() map[ErrorTier]TierBehavior {
	return map[ErrorTier]TierBehavior{
		TierTransient: {
			ShouldRetry:  true,
			MaxRetries:   3,
			BaseBackoff:  100 * time.Millisecond,
			MaxBackoff:   5 * time.Second,
			ShouldNotify: false,
		},
		TierPermanent: {
			ShouldRetry:  false,
			ShouldNotify: true,
		},
		TierUserFixable: {
			ShouldRetry:  false,
			ShouldNotify: true,
		},
		TierExternalRateLimit: {
			ShouldRetry:  true,
			MaxRetries:   5,
			BaseBackoff:  1 * time.Second,
			MaxBackoff:   60 * time.Second,
			ShouldNotify: true,
		},
		TierExternalDegrading: {
			ShouldRetry:  true,
			MaxRetries:   3,
			BaseBackoff:  500 * time.Millisecond,
			MaxBackoff:   30 * time.Second,
			ShouldNotify: true,
		},
	}
}

// TieredError wraps an error with tier classification and optional
// transport metadata gathered at the provider boundary.
type TieredError struct {
	Tier       ErrorTier
	Message    string
	Underlying error
	StatusCode int
	RetryAfter time.Duration
	Context    map[string]interface{}
}

func (e *TieredError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *TieredError) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is matching against sentinels and against other tiered errors.
func (e *TieredError) Is(target error) bool {
	if te, ok := target.(*TieredError); ok {
		return e.Tier == te.Tier && e.Message == te.Message
	}
	return errors.Is(e.Underlying, target)
}

// NewTieredError creates a tiered error wrapping an underlying cause.
func NewTieredError(tier ErrorTier, message string, underlying error) *TieredError {
	return &TieredError{
		Tier:       tier,
		Message:    message,
		Underlying: underlying,
	}
}

// WithStatusCode attaches an HTTP status code.
func (e *TieredError) WithStatusCode(code int) *TieredError {
	e.StatusCode = code
	return e
}

// WithRetryAfter attaches a provider-supplied retry delay.
func (e *TieredError) WithRetryAfter(d time.Duration) *TieredError {
	e.RetryAfter = d
	return e
}

// WithContext attaches a key/value pair for diagnostics.
func (e *TieredError) WithContext(key string, value interface{}) *TieredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Sentinel errors. ErrInvalidInput is the only error kind the scoring core
// produces; the rest belong to the probe, audit, and server boundaries.
var (
	ErrInvalidInput    = &TieredError{Tier: TierUserFixable, Message: "invalid input"}
	ErrMissingAPIKey   = &TieredError{Tier: TierUserFixable, Message: "missing API key"}
	ErrUnknownProvider = &TieredError{Tier: TierUserFixable, Message: "unknown provider"}
	ErrUnknownModel    = &TieredError{Tier: TierUserFixable, Message: "unknown model"}

	ErrTimeout             = &TieredError{Tier: TierTransient, Message: "operation timed out"}
	ErrProviderUnavailable = &TieredError{Tier: TierExternalDegrading, Message: "provider unavailable"}
	ErrRateLimited         = &TieredError{
		Tier:       TierExternalRateLimit,
		Message:    "rate limited",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrNotFound    = &TieredError{Tier: TierPermanent, Message: "not found"}
	ErrCompression = &TieredError{Tier: TierPermanent, Message: "compression failed"}
	ErrChainBroken = &TieredError{Tier: TierPermanent, Message: "audit chain integrity violation"}
	ErrStoreClosed = &TieredError{Tier: TierPermanent, Message: "store closed"}
)

// GetTier extracts the tier from an error chain. Untiered errors default to transient.
func GetTier(err error) ErrorTier {
	var te *TieredError
	if errors.As(err, &te) {
		return te.Tier
	}
	return TierTransient
}

// GetBehavior returns the handling policy for an error.
func GetBehavior(err error) TierBehavior {
	return DefaultBehaviors()[GetTier(err)]
}

// IsRetryable reports whether an error's tier permits retry.
func IsRetryable(err error) bool {
	return GetBehavior(err).ShouldRetry
}

// WrapWithTier wraps err with a tier unless it already carries one,
// in which case the existing tier is preserved.
func WrapWithTier(err error, tier ErrorTier, message string) error {
	if err == nil {
		return nil
	}
	var te *TieredError
	if errors.As(err, &te) {
		return &TieredError{
			Tier:       te.Tier,
			Message:    message,
			Underlying: err,
			StatusCode: te.StatusCode,
			RetryAfter: te.RetryAfter,
		}
	}
	return NewTieredError(tier, message, err)
}

// InvalidInputf builds a user-fixable error with formatted detail that
// still matches ErrInvalidInput under errors.Is.
func InvalidInputf(format string, args ...interface{}) error {
	return &TieredError{
		Tier:       TierUserFixable,
		Message:    fmt.Sprintf(format, args...),
		Underlying: ErrInvalidInput,
	}
}
