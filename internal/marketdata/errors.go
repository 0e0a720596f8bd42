package marketdata

import (
	"errors"
	"fmt"
)

// ErrDataUnavailable is matched by every DataUnavailableError.
var ErrDataUnavailable = errors.New("market data unavailable")

// DataUnavailableError reports why a ticker could not be fetched.
type DataUnavailableError struct {
	Symbol   string
	Reason   string
	NotFound bool // provider does not know the symbol
	Err      error
}

func (e *DataUnavailableError) Error() string {
	msg := fmt.Sprintf("market data unavailable for %s: %s", e.Symbol, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }
