package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	gauth "cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"

	"github.com/seenimoa/alphapredict/internal/infra"
)

const datastoreScope = "https://www.googleapis.com/auth/datastore"

// TokenSource mints bearer tokens for the document store.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ServiceAccountTokens mints tokens from a service-account key file, or from
// Application Default Credentials when the file is empty.
type ServiceAccountTokens struct {
	file string

	mu    sync.Mutex
	creds *gauth.Credentials
}

// NewServiceAccountTokens returns a token source for the given key file.
func NewServiceAccountTokens(file string) *ServiceAccountTokens {
	return &ServiceAccountTokens{file: file}
}

func (s *ServiceAccountTokens) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.creds == nil {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes:          []string{datastoreScope},
			CredentialsFile: s.file,
		})
		if err != nil {
			s.mu.Unlock()
			return "", fmt.Errorf("firestore credentials: %w", err)
		}
		s.creds = creds
	}
	creds := s.creds
	s.mu.Unlock()

	tok, err := creds.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("firestore token: %w", err)
	}
	return tok.Value, nil
}

// FirestoreStore reads user records from a Firestore collection over REST.
// Documents are keyed by email.
type FirestoreStore struct {
	client     *infra.Client
	tokens     TokenSource
	baseURL    string
	projectID  string
	collection string
}

// NewFirestoreStore returns a store for project/collection.
func NewFirestoreStore(client *infra.Client, tokens TokenSource, baseURL, projectID, collection string) *FirestoreStore {
	return &FirestoreStore{
		client:     client,
		tokens:     tokens,
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		collection: collection,
	}
}

type firestoreValue struct {
	StringValue  *string `json:"stringValue,omitempty"`
	BooleanValue *bool   `json:"booleanValue,omitempty"`
}

type firestoreDocument struct {
	Name   string                    `json:"name"`
	Fields map[string]firestoreValue `json:"fields"`
}

func (d *firestoreDocument) str(key string) string {
	if v, ok := d.Fields[key]; ok && v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}

func (d *firestoreDocument) boolean(key string) bool {
	if v, ok := d.Fields[key]; ok && v.BooleanValue != nil {
		return *v.BooleanValue
	}
	return false
}

// Lookup fetches the document named by email.
func (f *FirestoreStore) Lookup(ctx context.Context, email string) (*UserRecord, error) {
	if f.projectID == "" {
		return nil, errors.New("firestore: project id not configured")
	}
	tok, err := f.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/databases/(default)/documents/%s/%s",
		f.baseURL, url.PathEscape(f.projectID), url.PathEscape(f.collection), url.PathEscape(email))

	var doc firestoreDocument
	err = f.client.GetJSON(ctx, endpoint, map[string]string{"Authorization": "Bearer " + tok}, &doc)
	if err != nil {
		var he *infra.HTTPError
		if errors.As(err, &he) && he.StatusCode == http.StatusNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("firestore lookup: %w", err)
	}

	return &UserRecord{
		Email:     email,
		FirstName: doc.str("first_name"),
		LastName:  doc.str("last_name"),
		Tier:      doc.str("tier"),
		Paid:      doc.boolean("paid"),
	}, nil
}
