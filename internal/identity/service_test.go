package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/just-aakash/cyberknights/internal/store"
	"github.com/just-aakash/cyberknights/internal/store/memory"
)

func newSeeded(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := NewService(st)
	require.NoError(t, svc.Seed(context.Background()))
	return svc, st
}

func TestSeedIsIdempotent(t *testing.T) {
	svc, st := newSeeded(t)
	ctx := context.Background()

	before, err := st.GetCredential(ctx, seedUsername)
	require.NoError(t, err)

	require.NoError(t, svc.Seed(ctx))

	after, err := st.GetCredential(ctx, seedUsername)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash, "re-seeding must not rewrite the hash")
}

func TestVerify(t *testing.T) {
	svc, _ := newSeeded(t)
	ctx := context.Background()

	assert.True(t, svc.Verify(ctx, seedUsername, seedPassword))
	assert.False(t, svc.Verify(ctx, seedUsername, "wrong"))
	assert.False(t, svc.Verify(ctx, "nobody", seedPassword), "unknown name reads the same as a mismatch")
}

func TestChangePassword(t *testing.T) {
	svc, _ := newSeeded(t)
	ctx := context.Background()

	require.NoError(t, svc.ChangePassword(ctx, seedUsername, seedPassword, "n3w-pass"))
	assert.False(t, svc.Verify(ctx, seedUsername, seedPassword))
	assert.True(t, svc.Verify(ctx, seedUsername, "n3w-pass"))
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, _ := newSeeded(t)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, seedUsername, "wrong", "n3w-pass")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	assert.True(t, svc.Verify(ctx, seedUsername, seedPassword), "stored hash must be unchanged")
}

func TestChangePasswordUnknownIdentity(t *testing.T) {
	svc, _ := newSeeded(t)

	err := svc.ChangePassword(context.Background(), "nobody", "x", "y")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
