// Package identity holds login credentials and verifies passwords.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/just-aakash/cyberknights/internal/store"
)

// Demo identity created on first start when no credential exists.
const (
	seedUsername = "Akash"
	seedPassword = "12345"
)

// Service verifies and rotates credentials.
type Service struct {
	st store.Store
}

// NewService creates a service backed by the given store.
func NewService(st store.Store) *Service {
	return &Service{st: st}
}

// Verify reports whether the password matches the stored hash for name.
// It returns false for an unknown name as well as for a mismatch, so
// callers cannot tell which failed.
func (s *Service) Verify(ctx context.Context, name, password string) bool {
	cred, err := s.st.GetCredential(ctx, name)
	if err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) == nil
}

// ChangePassword replaces the stored hash after proving the current
// password. ErrNotFound for an unknown identity, ErrInvalidInput when
// the current password does not verify.
func (s *Service) ChangePassword(ctx context.Context, name, current, next string) error {
	cred, err := s.st.GetCredential(ctx, name)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(current)) != nil {
		return fmt.Errorf("current password incorrect: %w", store.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	cred.PasswordHash = string(hash)
	return s.st.PutCredential(ctx, cred)
}

// Seed creates the demo identity once, guarded by an existence lookup,
// so repeated startups are idempotent.
func (s *Service) Seed(ctx context.Context) error {
	_, err := s.st.GetCredential(ctx, seedUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	log.Printf("seeding demo identity %q", seedUsername)
	return s.st.PutCredential(ctx, store.Credential{
		Username:     seedUsername,
		PasswordHash: string(hash),
	})
}
