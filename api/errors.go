package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/seenimoa/alphapredict/internal/auth"
	"github.com/seenimoa/alphapredict/internal/dashboard"
	"github.com/seenimoa/alphapredict/internal/entitlement"
	"github.com/seenimoa/alphapredict/internal/insight"
	"github.com/seenimoa/alphapredict/internal/marketdata"
	"github.com/seenimoa/alphapredict/pkg/models"
)

// statusFor maps a domain error onto an HTTP status code.
func statusFor(err error) int {
	var de *marketdata.DataUnavailableError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, models.ErrEmptyTicker):
		return http.StatusBadRequest
	case errors.Is(err, entitlement.ErrNotAuthenticated),
		errors.Is(err, auth.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, entitlement.ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, auth.ErrUserRecordMissing):
		return http.StatusForbidden
	case errors.As(err, &de) && de.NotFound:
		return http.StatusNotFound
	case errors.Is(err, marketdata.ErrDataUnavailable),
		errors.Is(err, auth.ErrUserRecordUnavailable),
		errors.Is(err, insight.ErrInsightGenerationFailed):
		return http.StatusBadGateway
	case errors.Is(err, dashboard.ErrSuperseded),
		errors.Is(err, context.Canceled):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// userMessage returns text safe to show in the page or an API response.
// Provider and configuration detail stays in the logs.
func userMessage(err error) string {
	var (
		ae *auth.AuthError
		de *marketdata.DataUnavailableError
	)
	switch {
	case errors.As(err, &ae):
		return ae.Message()
	case errors.Is(err, models.ErrEmptyTicker):
		return "Enter a stock symbol."
	case errors.Is(err, entitlement.ErrNotAuthenticated):
		return "Please log in to look up stocks."
	case errors.Is(err, entitlement.ErrPaymentRequired):
		return dashboard.UpgradeNotice
	case errors.Is(err, entitlement.ErrConfiguration):
		return "Your subscription tier is not configured. Please contact support."
	case errors.As(err, &de) && de.NotFound:
		return "No market data found for " + de.Symbol + ". Check the symbol and try again."
	case errors.Is(err, marketdata.ErrDataUnavailable):
		return "Market data is unavailable right now. Please try again later."
	case errors.Is(err, dashboard.ErrSuperseded), errors.Is(err, context.Canceled):
		return "This request was replaced by a newer one."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
