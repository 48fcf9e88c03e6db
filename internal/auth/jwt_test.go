package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "cyberknights-test"
)

func TestIssueAndParse(t *testing.T) {
	token, exp, err := Issue("Akash", testIssuer, testKey, 8*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), exp, 5*time.Second)

	identity, err := Parse(token, testKey, testIssuer)
	require.NoError(t, err)
	assert.Equal(t, "Akash", identity)
}

func TestParseExpired(t *testing.T) {
	token, _, err := Issue("Akash", testIssuer, testKey, -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token, testKey, testIssuer)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseWrongKey(t *testing.T) {
	token, _, err := Issue("Akash", testIssuer, testKey, time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "some-other-key", testIssuer)
	assert.Error(t, err)
}

func TestParseIssuerMismatch(t *testing.T) {
	token, _, err := Issue("Akash", "someone-else", testKey, time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, testKey, testIssuer)
	assert.Error(t, err)
}

func TestParseGarbage(t *testing.T) {
	_, err := Parse("not-a-token", testKey, testIssuer)
	assert.Error(t, err)
}
