package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationFailed means the identity provider rejected the credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrUserRecordMissing means the credentials were valid but no usable user record exists.
	ErrUserRecordMissing = errors.New("user record missing")
	// ErrUserRecordUnavailable means the record store could not be reached.
	ErrUserRecordUnavailable = errors.New("user record unavailable")

	// ErrRecordNotFound is returned by UserRecordStore implementations for an unknown email.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidCredentials is returned by IdentityVerifier implementations.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Kind classifies an AuthError.
type Kind int

const (
	KindAuthenticationFailed Kind = iota + 1
	KindUserRecordMissing
	KindUserRecordUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationFailed:
		return "AuthenticationFailed"
	case KindUserRecordMissing:
		return "UserRecordMissing"
	case KindUserRecordUnavailable:
		return "UserRecordUnavailable"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindAuthenticationFailed:
		return ErrAuthenticationFailed
	case KindUserRecordMissing:
		return ErrUserRecordMissing
	default:
		return ErrUserRecordUnavailable
	}
}

// AuthError is returned by Gate.Submit. It matches the sentinel for its Kind.
type AuthError struct {
	Kind Kind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return e.Kind.sentinel().Error() + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == e.Kind.sentinel() }

// Message is the user-facing text for the login form.
func (e *AuthError) Message() string {
	switch e.Kind {
	case KindAuthenticationFailed:
		return "Incorrect email or password. Please try again."
	case KindUserRecordMissing:
		return "Your account has no subscription record. Please contact support."
	default:
		return "Your account details could not be loaded right now. Please try again later."
	}
}
