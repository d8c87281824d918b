package session

import (
	"fmt"

	"github.com/timoknapp/sports-meet/pkg/logger"
	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/store"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is the pluggable credential check.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

// PlaintextHasher stores and compares passwords verbatim. It exists for
// compatibility with data exported by earlier installations and is not a
// security mechanism.
type PlaintextHasher struct{}

func (PlaintextHasher) Hash(password string) (string, error) { return password, nil }
func (PlaintextHasher) Verify(stored, password string) bool  { return stored == password }

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (h BcryptHasher) Verify(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// HasherFor maps the MEET_PASSWORD_MODE value to a hasher.
func HasherFor(mode string) (PasswordHasher, error) {
	switch mode {
	case "", "plain":
		return PlaintextHasher{}, nil
	case "bcrypt":
		return BcryptHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown password mode %q", mode)
	}
}

// Default administrator seeded into an empty installation.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

type Authenticator struct {
	store  *store.Store
	hasher PasswordHasher
	log    *logger.Logger
}

func NewAuthenticator(s *store.Store, hasher PasswordHasher) *Authenticator {
	return &Authenticator{store: s, hasher: hasher, log: s.Logger("session")}
}

func (a *Authenticator) Hasher() PasswordHasher {
	return a.hasher
}

// EnsureDefaultAdmin creates the default super admin when there are no users
// at all. It reports whether a user was created.
func (a *Authenticator) EnsureDefaultAdmin() (bool, error) {
	if a.store.Users.Count() > 0 {
		return false, nil
	}
	hash, err := a.hasher.Hash(DefaultAdminPassword)
	if err != nil {
		return false, err
	}
	a.store.Users.Add(&models.User{
		Username: DefaultAdminUsername,
		Password: hash,
		Name:     "System Administrator",
		Role:     models.RoleSuperAdmin,
	})
	a.log.Warn("Default administrator %q created, change its password", DefaultAdminUsername)
	return true, nil
}

// Login checks the credentials, records the login and marks the user as the
// store's current user.
func (a *Authenticator) Login(username, password string) (Session, error) {
	for _, u := range a.store.Users.GetAll() {
		if u.Username != username || !a.hasher.Verify(u.Password, password) {
			continue
		}
		s := FromUser(u)
		a.store.SetCurrentUserID(u.ID)
		a.store.AddLog(s.Log("login", "system", "user logged in"))
		a.log.Info("User %s logged in as %s", u.Username, u.Role)
		return s, nil
	}
	a.log.Debug("Failed login for %q", username)
	return Session{}, ErrInvalidCredentials
}

func (a *Authenticator) Logout(s Session) {
	a.store.AddLog(s.Log("logout", "system", "user logged out"))
	if a.store.CurrentUserID() == s.UserID {
		a.store.SetCurrentUserID("")
	}
}

// Resume rebuilds the session of the user marked current in the store.
func (a *Authenticator) Resume() (Session, bool) {
	id := a.store.CurrentUserID()
	if id == "" {
		return Session{}, false
	}
	u, ok := a.store.Users.Find(id)
	if !ok {
		return Session{}, false
	}
	return FromUser(u), true
}

// Refresh reloads the session from the stored user so role or class changes
// made after login take effect.
func (a *Authenticator) Refresh(s Session) (Session, error) {
	u, ok := a.store.Users.Find(s.UserID)
	if !ok {
		return Session{}, ErrUnknownUser
	}
	return FromUser(u), nil
}
