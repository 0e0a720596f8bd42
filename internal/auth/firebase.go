package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/seenimoa/alphapredict/internal/infra"
)

// FirebaseVerifier checks credentials against the Identity Toolkit REST API.
type FirebaseVerifier struct {
	client  *infra.Client
	baseURL string
	apiKey  string
}

// NewFirebaseVerifier returns a verifier for the given web API key.
func NewFirebaseVerifier(client *infra.Client, baseURL, apiKey string) *FirebaseVerifier {
	return &FirebaseVerifier{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

type firebaseErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FirebaseError carries the provider's error code, e.g. INVALID_PASSWORD.
type FirebaseError struct {
	Status int
	Code   string
}

func (e *FirebaseError) Error() string {
	return fmt.Sprintf("firebase: %s (HTTP %d)", e.Code, e.Status)
}

func (e *FirebaseError) Unwrap() error { return ErrInvalidCredentials }

// Verify signs in with email and password.
func (v *FirebaseVerifier) Verify(ctx context.Context, email, password string) error {
	if v.apiKey == "" {
		return errors.New("firebase: api key not configured")
	}
	endpoint := v.baseURL + "/v1/accounts:signInWithPassword?key=" + url.QueryEscape(v.apiKey)

	var resp signInResponse
	err := v.client.PostJSON(ctx, endpoint, signInRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, nil, &resp)
	if err != nil {
		var he *infra.HTTPError
		if errors.As(err, &he) {
			return &FirebaseError{Status: he.StatusCode, Code: firebaseCode(he.Body)}
		}
		return fmt.Errorf("firebase sign-in: %w", err)
	}
	if resp.IDToken == "" {
		return errors.New("firebase: sign-in returned no token")
	}
	return nil
}

func firebaseCode(body string) string {
	var fe firebaseErrorBody
	if err := json.Unmarshal([]byte(body), &fe); err != nil || fe.Error.Message == "" {
		return "UNKNOWN"
	}
	// Messages look like "TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled ..."
	code, _, _ := strings.Cut(fe.Error.Message, " ")
	return code
}
