package auth

import (
	"context"
	"crypto/subtle"

	"github.com/seenimoa/alphapredict/internal/config"
)

// StaticDirectory serves a fixed set of development accounts from config.
// It implements both IdentityVerifier and UserRecordStore.
type StaticDirectory struct {
	users map[string]config.StaticUser
}

// NewStaticDirectory indexes users by normalized email.
func NewStaticDirectory(users []config.StaticUser) *StaticDirectory {
	d := &StaticDirectory{users: make(map[string]config.StaticUser, len(users))}
	for _, u := range users {
		d.users[normalizeEmail(u.Email)] = u
	}
	return d
}

func (d *StaticDirectory) Verify(_ context.Context, email, password string) error {
	u, ok := d.users[normalizeEmail(email)]
	if !ok || subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

func (d *StaticDirectory) Lookup(_ context.Context, email string) (*UserRecord, error) {
	u, ok := d.users[normalizeEmail(email)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &UserRecord{
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Tier:      u.Tier,
		Paid:      u.Paid,
	}, nil
}
