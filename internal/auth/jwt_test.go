package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("user-1", "student", "u@campus.edu", "geoattend", "secret", time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := Parse(pair.AccessToken, "secret", "geoattend")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, "u@campus.edu", claims.Email)
}

func TestParseWrongKey(t *testing.T) {
	pair, err := Issue("user-1", "student", "", "geoattend", "secret", time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "other-secret", "geoattend")
	assert.Error(t, err)
}

func TestParseIssuerMismatch(t *testing.T) {
	pair, err := Issue("user-1", "student", "", "someone-else", "secret", time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "secret", "geoattend")
	assert.Error(t, err)
}

func TestParseExpiredToken(t *testing.T) {
	pair, err := Issue("user-1", "student", "", "geoattend", "secret", -time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "secret", "geoattend")
	assert.Error(t, err)
}
