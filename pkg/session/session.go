// Package session identifies the caller of a meet operation. Sessions are
// plain values handed to every operation that needs the actor; nothing reads
// a process-wide "current user".
package session

import (
	"errors"

	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/scope"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnknownUser        = errors.New("user no longer exists")
)

type Session struct {
	UserID    string      `json:"userId"`
	UserName  string      `json:"userName"`
	Role      models.Role `json:"role"`
	ClassID   string      `json:"classId,omitempty"`
	ClassName string      `json:"className,omitempty"`
}

// FromUser builds the session for an authenticated user.
func FromUser(u *models.User) Session {
	return Session{
		UserID:    u.ID,
		UserName:  u.Name,
		Role:      u.Role,
		ClassID:   u.ClassID,
		ClassName: u.ClassName,
	}
}

// System is the actor recorded for jobs that run without a user, e.g. backups.
func System() Session {
	return Session{UserID: "system", UserName: "system", Role: models.RoleSuperAdmin}
}

func (s Session) Scope() scope.Scope {
	return scope.For(s.Role, s.ClassID)
}

// HasRole reports whether the session holds any of roles.
func (s Session) HasRole(roles ...models.Role) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// Log builds an operation log entry attributed to this session.
func (s Session) Log(action, target, details string) models.OperationLog {
	return models.OperationLog{
		UserID:   s.UserID,
		UserName: s.UserName,
		Action:   action,
		Target:   target,
		Details:  details,
	}
}
