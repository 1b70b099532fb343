package domain

import "fmt"

// Error types for consistent error handling across the bot.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates a resource already exists.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrDNSUnreachable indicates the provider host did not resolve.
// Raised by the pre-request DNS check so the operator sees a clear
// diagnostic instead of a generic transport error.
type ErrDNSUnreachable struct {
	Host string
	Err  error
}

func (e *ErrDNSUnreachable) Error() string {
	return fmt.Sprintf("host unreachable (dns): %s: %v", e.Host, e.Err)
}

func (e *ErrDNSUnreachable) Unwrap() error {
	return e.Err
}

// ErrProviderHTTP indicates a non-2xx (or HTML) response from the
// billing provider API.
type ErrProviderHTTP struct {
	Status int
	Body   string
}

func (e *ErrProviderHTTP) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}

// ErrInvalidConfig indicates missing tenant credentials or license.
type ErrInvalidConfig struct {
	Field   string
	Message string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid configuration [%s]: %s", e.Field, e.Message)
}

// ErrEmailFallbackFailed indicates both the provider API and the portal
// e-mail fallback failed. Carries the original API error for diagnosis.
type ErrEmailFallbackFailed struct {
	APIErr error
}

func (e *ErrEmailFallbackFailed) Error() string {
	return fmt.Sprintf("api and e-mail fallback both failed: %v", e.APIErr)
}

func (e *ErrEmailFallbackFailed) Unwrap() error {
	return e.APIErr
}
