package operators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hashed)
	assert.True(t, VerifyPassword(hashed, "s3cret"))
	assert.False(t, VerifyPassword(hashed, "wrong"))
}

func TestTokenRoundTrip(t *testing.T) {
	tok, exp, err := IssueToken("secret", "alice", []string{"operator"}, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := ParseToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.HasRole("operator"))
	assert.False(t, claims.HasRole("trainer"))
}

func TestParseTokenRejects(t *testing.T) {
	tok, _, err := IssueToken("secret", "alice", nil, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("other", tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _, err := IssueToken("secret", "alice", nil, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous, _, err := IssueToken("secret", "", nil, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("secret", anonymous)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("secret", "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
