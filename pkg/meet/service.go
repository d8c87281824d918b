// Package meet implements the administrative operations of a sports meet:
// configuration, registrations, results, schedules, certificates,
// statistics and data transfer. Every operation takes the caller's session
// explicitly and records an operation log entry for user-facing writes.
package meet

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timoknapp/sports-meet/pkg/certificate"
	"github.com/timoknapp/sports-meet/pkg/logger"
	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/ranking"
	"github.com/timoknapp/sports-meet/pkg/scope"
	"github.com/timoknapp/sports-meet/pkg/session"
	"github.com/timoknapp/sports-meet/pkg/store"
)

// Log targets.
const (
	targetClass        = "class"
	targetStudent      = "student"
	targetEvent        = "event"
	targetUser         = "user"
	targetSchedule     = "schedule"
	targetRegistration = "registration"
	targetResult       = "result"
	targetCertificate  = "certificate"
	targetTemplate     = "certificate template"
	targetMeet         = "meet"
	targetData         = "data"
)

type Service struct {
	// mu serialises check-then-write sequences such as the duplicate
	// registration check.
	mu sync.Mutex

	store    *store.Store
	ranking  *ranking.Engine
	auth     *session.Authenticator
	renderer *certificate.Renderer
	loc      *time.Location
	log      *logger.Logger
}

type Option func(*Service)

// WithLocation sets the zone used for dates printed on certificates and in CSV files.
func WithLocation(loc *time.Location) Option {
	return func(m *Service) { m.loc = loc }
}

func WithRenderer(r *certificate.Renderer) Option {
	return func(m *Service) { m.renderer = r }
}

func New(s *store.Store, auth *session.Authenticator, opts ...Option) *Service {
	m := &Service{
		store:    s,
		ranking:  ranking.NewEngine(s),
		auth:     auth,
		renderer: certificate.NewRenderer(),
		loc:      time.Local,
		log:      s.Logger("meet"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Service) Store() *store.Store {
	return m.store
}

func (m *Service) audit(sess session.Session, action, target, details string) {
	m.store.AddLog(sess.Log(action, target, details))
}

func (m *Service) now() time.Time {
	return m.store.Now().In(m.loc)
}

// authorize rejects sessions holding none of roles.
func authorize(sess session.Session, roles ...models.Role) error {
	if sess.HasRole(roles...) {
		return nil
	}
	return ErrForbidden
}

func superAdmin(sess session.Session) error {
	return authorize(sess, models.RoleSuperAdmin)
}

func staff(sess session.Session) error {
	return authorize(sess, models.RoleSuperAdmin, models.RoleClassAdmin)
}

// withinScope rejects writes to records outside a class admin's class.
func withinScope(sess session.Session, kind scope.Kind, classID string) error {
	if sess.Scope().Allows(kind, classID) {
		return nil
	}
	return ErrForbidden
}

// checkPatch rejects patches that blank out any of the required fields.
func checkPatch(patch store.Patch, requiredFields ...string) error {
	for _, field := range requiredFields {
		if s, ok := patchString(patch, field); ok && s == "" {
			return required(field)
		}
	}
	return nil
}

// patchString reads a patched field as text; named string types such as
// models.Role are accepted alongside plain strings.
func patchString(patch store.Patch, field string) (string, bool) {
	v, ok := patch[field]
	if !ok {
		return "", false
	}
	if v == nil {
		return "", true
	}
	if s, isString := v.(string); isString {
		return s, true
	}
	return fmt.Sprint(v), true
}

func patchNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// applyPatch updates the record and maps a patch value of the wrong type to
// a ValidationError and an unknown id to ErrNotFound.
func applyPatch[T models.Entity](c *store.Collection[T], kind, id string, patch store.Patch) error {
	found, err := c.UpdateChecked(id, patch)
	var patchErr *store.PatchError
	if errors.As(err, &patchErr) {
		return invalid(patchErr.Field, "has the wrong type")
	}
	if err != nil {
		return err
	}
	if !found {
		return notFound(kind, id)
	}
	return nil
}
