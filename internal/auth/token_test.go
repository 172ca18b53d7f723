package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	token, err := m.Issue(123)
	require.NoError(t, err)

	userID, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(123), userID)
}

func TestIssue_Claims(t *testing.T) {
	m := NewTokenManager(testSecret, 0)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	token, err := m.Issue(9)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	assert.Equal(t, "9", claims["sub"])
	assert.Equal(t, Issuer, claims["iss"])
	assert.Equal(t, float64(fixed.Add(DefaultTTL).Unix()), claims["exp"])
	assert.NotEmpty(t, claims["jti"])

	second, err := m.Issue(9)
	require.NoError(t, err)
	assert.NotEqual(t, token, second, "jti should make tokens unique")
}

func TestIssue_MissingSecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour).Issue(1)
	assert.Error(t, err)
}

func TestParse_Rejects(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	sign := func(claims jwt.MapClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": strconv.Itoa(5),
			"iss": Issuer,
			"aud": Audience,
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	expired := valid()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	wrongIssuer := valid()
	wrongIssuer["iss"] = "someone-else"

	wrongAudience := valid()
	wrongAudience["aud"] = "other-client"

	noExpiry := valid()
	delete(noExpiry, "exp")

	badSubject := valid()
	badSubject["sub"] = "abc"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"malformed", "malformed.token.here"},
		{"wrong secret", sign(valid(), "another-secret")},
		{"expired", sign(expired, testSecret)},
		{"wrong issuer", sign(wrongIssuer, testSecret)},
		{"wrong audience", sign(wrongAudience, testSecret)},
		{"missing expiry", sign(noExpiry, testSecret)},
		{"non numeric subject", sign(badSubject, testSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := m.Parse(sign(valid(), testSecret))
	assert.NoError(t, err)
}

func TestExtractBearer(t *testing.T) {
	assert.Equal(t, "abc", ExtractBearer("Bearer abc"))
	assert.Equal(t, "abc", ExtractBearer("bearer abc"))
	assert.Equal(t, "", ExtractBearer("Basic dXNlcjpwYXNz"))
	assert.Equal(t, "", ExtractBearer("Bearer"))
	assert.Equal(t, "", ExtractBearer(""))
}
