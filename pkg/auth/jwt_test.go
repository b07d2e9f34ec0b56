package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifier(t *testing.T) {
	v := NewVerifier("test-secret")

	t.Run("should round-trip a generated token", func(t *testing.T) {
		req := require.New(t)

		token, err := v.GenerateToken("user-42", time.Hour)
		req.NoError(err)
		req.NotEmpty(token)

		userID, err := v.Verify(token)
		req.NoError(err)
		req.Equal("user-42", userID)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		req := require.New(t)

		token, err := v.GenerateToken("user-42", -time.Minute)
		req.NoError(err)

		_, err = v.Verify(token)
		req.ErrorIs(err, ErrInvalidToken)
	})

	t.Run("should reject garbage", func(t *testing.T) {
		req := require.New(t)

		_, err := v.Verify("not-a-token")
		req.ErrorIs(err, ErrInvalidToken)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		req := require.New(t)

		other := NewVerifier("other-secret")
		token, err := other.GenerateToken("user-42", time.Hour)
		req.NoError(err)

		_, err = v.Verify(token)
		req.ErrorIs(err, ErrInvalidToken)
	})
}
