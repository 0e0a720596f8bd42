package entitlement

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks an unknown tier or an incomplete table.
	ErrConfiguration = errors.New("entitlement configuration error")
	// ErrNotAuthenticated is returned by Authorize for a session that has not logged in.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrPaymentRequired is returned by Authorize when the user's paid flag is false.
	ErrPaymentRequired = errors.New("payment required")
)

// ConfigurationError reports why a tier could not be resolved.
type ConfigurationError struct {
	Tier   string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "entitlement: " + e.Reason
	if e.Tier != "" {
		msg = fmt.Sprintf("entitlement: tier %q: %s", e.Tier, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfiguration) true for every ConfigurationError.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
