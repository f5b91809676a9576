package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-the-backend-key"))
	require.NoError(t, err)
	return token
}

func TestIntrospectFrozenClock(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token := signToken(t, jwt.MapClaims{
		"user_id":   42,
		"full_name": "Ada Lovelace",
		"exp":       now.Add(30 * time.Second).Unix(),
		"iat":       now.Unix(),
	})

	info, err := NewTokenService().Introspect(token, now)
	require.NoError(t, err)

	assert.True(t, info.Authenticated)
	assert.Equal(t, json.Number("42"), info.User.UserID)
	assert.Equal(t, "Ada Lovelace", info.User.FullName)
	assert.Equal(t, now.UnixMilli(), info.Now)
	assert.Equal(t, now.Add(30*time.Second).UnixMilli(), info.Exp)
	assert.GreaterOrEqual(t, info.TTLMs, int64(29000))
	assert.LessOrEqual(t, info.TTLMs, int64(30000))
}

func TestIntrospectIgnoresSignatureAndExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token := signToken(t, jwt.MapClaims{
		"user_id": "u-1",
		"exp":     now.Add(-time.Minute).Unix(),
	})

	info, err := NewTokenService().Introspect(token, now)
	require.NoError(t, err)

	assert.Equal(t, "u-1", info.User.UserID)
	assert.Equal(t, "", info.User.FullName)
	assert.Equal(t, int64(0), info.TTLMs)
}

func TestIntrospectWithoutExp(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"user_id": "u-1"})

	info, err := NewTokenService().Introspect(token, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(0), info.Exp)
	assert.Equal(t, int64(0), info.TTLMs)
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{"abc", "a.b.c", "", "e30.e30"} {
		_, err := NewTokenService().Decode(raw)
		assert.ErrorIs(t, err, ErrMalformedToken, raw)
	}
}

func TestSubjectOf(t *testing.T) {
	svc := NewTokenService()

	assert.Equal(t, "7", svc.SubjectOf(signToken(t, jwt.MapClaims{"user_id": 7})))
	assert.Equal(t, "", svc.SubjectOf("garbage"))
	assert.Equal(t, "", svc.SubjectOf(""))
	assert.Equal(t, "", svc.SubjectOf(signToken(t, jwt.MapClaims{"sub": "x"})))
}
