package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestSessionToken_RoundTrip(t *testing.T) {
	token, issued, err := NewSessionToken(Subject{
		ID:      "65f000000000000000000001",
		GuestID: "GUEST101_1234",
		Email:   "a@b.com",
		Name:    "A",
	}, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token, testSecret)
	require.NoError(t, err)

	assert.Equal(t, "65f000000000000000000001", claims.Sub)
	assert.Equal(t, "GUEST101_1234", claims.GuestID)
	assert.Equal(t, RoleGuest, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.Remaining(time.Now()).Seconds(), 5)
}

func TestParse_Rejects(t *testing.T) {
	good, _, err := NewSessionToken(Subject{ID: "1", GuestID: "G"}, testSecret, time.Hour)
	require.NoError(t, err)
	expired, _, err := NewSessionToken(Subject{ID: "1", GuestID: "G"}, testSecret, -time.Minute)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", good, "other-secret"},
		{"expired", expired, testSecret},
		{"alg none", unsigned, testSecret},
		{"garbage", "not.a.token", testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.token, tt.secret)
			assert.Error(t, err)
		})
	}
}

func TestGuestCookie_EncodeDecode(t *testing.T) {
	c, err := NewGuestCookie(GuestCookie{GuestID: "GUEST101_1234", Email: "a@b.com", Name: "Añna"}, 7*24*time.Hour, false)
	require.NoError(t, err)

	assert.Equal(t, GuestCookieName, c.Name)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.False(t, c.HttpOnly)
	assert.Equal(t, 7*24*60*60, c.MaxAge)

	decoded, err := DecodeGuestCookie(c.Value)
	require.NoError(t, err)
	assert.Equal(t, "Añna", decoded.Name)
	assert.Equal(t, "GUEST101_1234", decoded.GuestID)
}

func TestGuestCookie_ScriptReadable(t *testing.T) {
	c, err := NewGuestCookie(GuestCookie{GuestID: "GUEST101_1234", Email: "a+b@c.com", Name: "Jane Doe"}, time.Hour, false)
	require.NoError(t, err)

	assert.Contains(t, c.Value, "Jane%20Doe")
	assert.NotContains(t, c.Value, "Jane+Doe")
	// the header value must not be quoted by net/http
	assert.NotContains(t, c.String(), `"`)

	decoded, err := DecodeGuestCookie(c.Value)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", decoded.Name)
	assert.Equal(t, "a+b@c.com", decoded.Email)
}

func TestDecodeGuestCookie_Invalid(t *testing.T) {
	for _, v := range []string{"", "%zz", "not-json", "%7B%7D"} {
		_, err := DecodeGuestCookie(v)
		assert.Error(t, err, v)
	}
}
