package auth

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/alphapredict/internal/config"
	"github.com/seenimoa/alphapredict/internal/infra"
)

// Backend bundles the collaborators selected by auth.provider.
type Backend struct {
	Verifier IdentityVerifier
	Store    UserRecordStore
	closer   io.Closer
}

// Close releases any resources held by the backend.
func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// NewBackend builds the verifier and record store for cfg.Provider.
func NewBackend(cfg config.AuthConfig, logger *zap.Logger) (*Backend, error) {
	switch cfg.Provider {
	case config.AuthFirebase:
		client := infra.NewClient(15 * time.Second)
		return &Backend{
			Verifier: NewFirebaseVerifier(client, cfg.Firebase.IdentityBaseURL, cfg.Firebase.APIKey),
			Store: NewFirestoreStore(client,
				NewServiceAccountTokens(cfg.Firestore.CredentialsFile),
				cfg.Firestore.BaseURL, cfg.Firebase.ProjectID, cfg.Firestore.Collection),
		}, nil
	case config.AuthSQLite:
		st, err := OpenSQLiteStore(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		return &Backend{Verifier: st, Store: st, closer: st}, nil
	case config.AuthStatic:
		d := NewStaticDirectory(cfg.Static)
		return &Backend{Verifier: d, Store: d}, nil
	default:
		return nil, fmt.Errorf("auth: unknown provider %q", cfg.Provider)
	}
}
