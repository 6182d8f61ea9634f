package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier([]byte("test-secret"), time.Hour, "polaris")

	credential, err := v.Issue("user-1")
	require.NoError(t, err)

	identity, err := v.Verify(credential)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity)
}

func TestVerifyMissingCredential(t *testing.T) {
	v := NewVerifier([]byte("test-secret"), time.Hour, "polaris")

	_, err := v.Verify("")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestVerifyExpiredCredential(t *testing.T) {
	v := NewVerifier([]byte("test-secret"), time.Hour, "polaris")

	credential, err := v.IssueExpired("user-1")
	require.NoError(t, err)

	_, err = v.Verify(credential)
	assert.ErrorIs(t, err, ErrExpiredCredential)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewVerifier([]byte("secret-a"), time.Hour, "polaris")
	verifier := NewVerifier([]byte("secret-b"), time.Hour, "polaris")

	credential, err := issuer.Issue("user-1")
	require.NoError(t, err)

	_, err = verifier.Verify(credential)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyGarbage(t *testing.T) {
	v := NewVerifier([]byte("test-secret"), time.Hour, "polaris")

	_, err := v.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}
