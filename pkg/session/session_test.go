package session

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timoknapp/sports-meet/pkg/logger"
	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/store"
)

func quietStore() *store.Store {
	l := logger.NewLogger()
	l.SetOutput(&bytes.Buffer{})
	return store.New(store.NewMemoryBackend(), store.WithLogger(l))
}

func TestEnsureDefaultAdminAndLogin(t *testing.T) {
	s := quietStore()
	auth := NewAuthenticator(s, PlaintextHasher{})

	created, err := auth.EnsureDefaultAdmin()
	require.NoError(t, err)
	assert.True(t, created)
	created, err = auth.EnsureDefaultAdmin()
	require.NoError(t, err)
	assert.False(t, created)

	_, err = auth.Login("admin", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	sess, err := auth.Login(DefaultAdminUsername, DefaultAdminPassword)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, sess.Role)
	assert.Equal(t, sess.UserID, s.CurrentUserID())

	resumed, ok := auth.Resume()
	require.True(t, ok)
	assert.Equal(t, sess, resumed)

	auth.Logout(sess)
	assert.Equal(t, "", s.CurrentUserID())

	logs := s.Logs.GetAll()
	require.Len(t, logs, 2)
	assert.Equal(t, "login", logs[0].Action)
	assert.Equal(t, "logout", logs[1].Action)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hash, err := h.Hash("teacher123")
	require.NoError(t, err)
	assert.NotEqual(t, "teacher123", hash)
	assert.True(t, h.Verify(hash, "teacher123"))
	assert.False(t, h.Verify(hash, "teacher124"))

	s := quietStore()
	s.Users.Add(&models.User{Username: "teacher", Password: hash, Name: "Ms Zhang", Role: models.RoleClassAdmin, ClassID: "c1"})
	sess, err := NewAuthenticator(s, h).Login("teacher", "teacher123")
	require.NoError(t, err)
	assert.Equal(t, "c1", sess.Scope().ClassID)
}

func TestHasherFor(t *testing.T) {
	h, err := HasherFor("")
	require.NoError(t, err)
	assert.IsType(t, PlaintextHasher{}, h)
	h, err = HasherFor("bcrypt")
	require.NoError(t, err)
	assert.IsType(t, BcryptHasher{}, h)
	_, err = HasherFor("md5")
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	s := quietStore()
	u := s.Users.Add(&models.User{Username: "t", Name: "T", Role: models.RoleClassAdmin, ClassID: "c1"})
	auth := NewAuthenticator(s, PlaintextHasher{})
	sess := FromUser(u)

	s.Users.Update(u.ID, store.Patch{"classId": "c2"})
	refreshed, err := auth.Refresh(sess)
	require.NoError(t, err)
	assert.Equal(t, "c2", refreshed.ClassID)

	s.Users.Delete(u.ID)
	_, err = auth.Refresh(sess)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	sess := Session{UserID: "u1", UserName: "Ms Zhang", Role: models.RoleClassAdmin, ClassID: "c1", ClassName: "1-1"}

	token, err := issuer.Issue(sess)
	require.NoError(t, err)
	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	_, err = NewTokenIssuer("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	start := time.Now()
	issuer.now = func() time.Time { return start }
	token, err := issuer.Issue(Session{UserID: "u1"})
	require.NoError(t, err)

	issuer.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHasRole(t *testing.T) {
	s := Session{Role: models.RoleStudent}
	assert.True(t, s.HasRole(models.RoleSuperAdmin, models.RoleStudent))
	assert.False(t, s.HasRole(models.RoleClassAdmin))
}

func TestAuthenticatorLogsThroughStoreLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewLogger()
	l.SetOutput(&buf)
	s := store.New(store.NewMemoryBackend(), store.WithLogger(l))
	auth := NewAuthenticator(s, PlaintextHasher{})

	_, err := auth.EnsureDefaultAdmin()
	require.NoError(t, err)
	_, err = auth.Login(DefaultAdminUsername, DefaultAdminPassword)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "[session] User admin logged in as super_admin")
}
