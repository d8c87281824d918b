// Package scope narrows collections to what a role may see. It is display
// scoping only; the store itself stays readable and writable by any caller.
package scope

import "github.com/timoknapp/sports-meet/pkg/models"

// Kind names a collection as seen by the filters.
type Kind string

const (
	Registrations Kind = "registrations"
	Results       Kind = "results"
	Certificates  Kind = "certificates"
	Students      Kind = "students"
	Schedules     Kind = "schedules"
	Events        Kind = "events"
	Classes       Kind = "classes"
)

// classScopedKinds are narrowed to the admin's own class for class admins.
var classScopedKinds = map[Kind]bool{
	Registrations: true,
	Results:       true,
	Certificates:  true,
}

// Scope is the (role, class) pair every filter is keyed by.
type Scope struct {
	Role    models.Role
	ClassID string
}

func For(role models.Role, classID string) Scope {
	return Scope{Role: role, ClassID: classID}
}

// ClassOnly reports whether records of kind must match the scope's class.
// Students see schedules and certificates unscoped.
func (s Scope) ClassOnly(kind Kind) bool {
	return s.Role == models.RoleClassAdmin && s.ClassID != "" && classScopedKinds[kind]
}

// Allows reports whether a single record of kind belonging to classID is visible.
func (s Scope) Allows(kind Kind, classID string) bool {
	if !s.ClassOnly(kind) {
		return true
	}
	return classID == s.ClassID
}

// Apply returns the visible subset of items, preserving order.
func Apply[T models.ClassScoped](s Scope, kind Kind, items []T) []T {
	if !s.ClassOnly(kind) {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.GetClassID() == s.ClassID {
			out = append(out, item)
		}
	}
	return out
}
