package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifierRoundTrip(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("secret")

	token, err := v.Sign("profile-123")
	req.NoError(err)

	sub, err := v.Verify(token)
	req.NoError(err)
	req.Equal("profile-123", sub)
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	req := require.New(t)
	token, err := NewVerifier("one").Sign("profile-123")
	req.NoError(err)

	_, err = NewVerifier("two").Verify(token)
	req.ErrorIs(err, ErrInvalidToken)
}

func TestVerifierRejectsGarbage(t *testing.T) {
	req := require.New(t)
	_, err := NewVerifier("secret").Verify("not.a.jwt")
	req.ErrorIs(err, ErrInvalidToken)
}

func TestVerifierRejectsMissingSubject(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("secret")
	token, err := v.Sign("")
	req.NoError(err)

	_, err = v.Verify(token)
	req.ErrorIs(err, ErrInvalidToken)
}
