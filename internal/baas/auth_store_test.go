package baas

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   "u1",
		"type": "auth",
		"exp":  exp.Unix(),
	})
	raw, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return raw
}

func TestAuthStoreValidity(t *testing.T) {
	store := NewAuthStore()
	assert.False(t, store.IsValid(), "empty store must be invalid")

	store.Save(signedToken(t, time.Now().Add(time.Hour)), NewRecord("users"))
	assert.True(t, store.IsValid())

	store.Save(signedToken(t, time.Now().Add(-time.Minute)), NewRecord("users"))
	assert.False(t, store.IsValid(), "expired token must be invalid")

	store.Save("not-a-jwt", nil)
	assert.False(t, store.IsValid())
}

func TestAuthStoreNotifiesSubscribers(t *testing.T) {
	store := NewAuthStore()

	var seen []string
	unsubscribe := store.OnChange(func(token string, model *Record) {
		seen = append(seen, token)
	})

	user := NewRecord("users")
	user.ID = "u1"
	store.Save("t1", user)
	store.Clear()

	unsubscribe()
	store.Save("t2", user)

	assert.Equal(t, []string{"t1", ""}, seen)
	assert.Equal(t, "t2", store.Token())
	assert.Equal(t, "u1", store.Model().ID)
}

func TestAuthStoreLoadDoesNotNotify(t *testing.T) {
	store := NewAuthStore()
	calls := 0
	store.OnChange(func(string, *Record) { calls++ })

	store.Load("t1", nil)
	assert.Equal(t, 0, calls)
	assert.Equal(t, "t1", store.Token())
}
