package meet

import (
	"fmt"

	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/scope"
	"github.com/timoknapp/sports-meet/pkg/session"
	"github.com/timoknapp/sports-meet/pkg/store"
)

// RegistrationFilter narrows the registration list; empty fields match all.
type RegistrationFilter struct {
	ClassID string
	EventID string
	Status  models.RegistrationStatus
}

func (f RegistrationFilter) match(r *models.Registration) bool {
	return (f.ClassID == "" || r.ClassID == f.ClassID) &&
		(f.EventID == "" || r.EventID == f.EventID) &&
		(f.Status == "" || r.Status == f.Status)
}

// Registrations returns the registrations visible to the session.
func (m *Service) Registrations(sess session.Session, f RegistrationFilter) []*models.Registration {
	visible := scope.Apply(sess.Scope(), scope.Registrations, m.store.Registrations.GetAll())
	out := make([]*models.Registration, 0, len(visible))
	for _, r := range visible {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Register signs a student up for an event. Super admins register as
// approved, class admins as pending.
func (m *Service) Register(sess session.Session, studentID, eventID string) (*models.Registration, error) {
	if err := staff(sess); err != nil {
		return nil, err
	}
	if studentID == "" {
		return nil, required("studentId")
	}
	if eventID == "" {
		return nil, required("eventId")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st, event, err := m.registrationRefs(sess, studentID, eventID)
	if err != nil {
		return nil, err
	}
	if m.duplicateRegistration(studentID, eventID, "") {
		return nil, ErrDuplicateRegistration
	}
	if m.eventFull(event, "") {
		return nil, ErrEventFull
	}

	status := models.RegistrationPending
	if sess.Role == models.RoleSuperAdmin {
		status = models.RegistrationApproved
	}
	created := m.store.Registrations.Add(&models.Registration{
		StudentID:   st.ID,
		StudentName: st.Name,
		ClassID:     st.ClassID,
		ClassName:   st.ClassName,
		EventID:     event.ID,
		EventName:   event.Name,
		Status:      status,
	})
	m.audit(sess, "create", targetRegistration, fmt.Sprintf("registered %s for %s", st.Name, event.Name))
	return created, nil
}

// EditRegistration moves a registration to another student or event. The
// status is left as it is.
func (m *Service) EditRegistration(sess session.Session, id, studentID, eventID string) (*models.Registration, error) {
	if err := staff(sess); err != nil {
		return nil, err
	}
	if studentID == "" {
		return nil, required("studentId")
	}
	if eventID == "" {
		return nil, required("eventId")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	reg, err := m.scopedRegistration(sess, id)
	if err != nil {
		return nil, err
	}
	if m.resultFor(id) != nil {
		return nil, inUse(targetRegistration, id, "a result")
	}
	st, event, err := m.registrationRefs(sess, studentID, eventID)
	if err != nil {
		return nil, err
	}
	if m.duplicateRegistration(studentID, eventID, id) {
		return nil, ErrDuplicateRegistration
	}
	if event.ID != reg.EventID && reg.Status != models.RegistrationRejected && m.eventFull(event, id) {
		return nil, ErrEventFull
	}

	m.store.Registrations.Update(id, store.Patch{
		"studentId":   st.ID,
		"studentName": st.Name,
		"classId":     st.ClassID,
		"className":   st.ClassName,
		"eventId":     event.ID,
		"eventName":   event.Name,
	})
	updated, _ := m.store.Registrations.Find(id)
	m.audit(sess, "update", targetRegistration, fmt.Sprintf("updated registration %s for %s", st.Name, event.Name))
	return updated, nil
}

// Approve moves a pending registration to approved.
func (m *Service) Approve(sess session.Session, id string) (*models.Registration, error) {
	return m.transition(sess, id, models.RegistrationApproved, "")
}

// Reject moves a pending registration to rejected; a reason is required.
func (m *Service) Reject(sess session.Session, id, reason string) (*models.Registration, error) {
	if reason == "" {
		return nil, required("rejectedReason")
	}
	return m.transition(sess, id, models.RegistrationRejected, reason)
}

func (m *Service) transition(sess session.Session, id string, to models.RegistrationStatus, reason string) (*models.Registration, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.store.Registrations.Find(id)
	if !ok {
		return nil, notFound(targetRegistration, id)
	}
	if reg.Status != models.RegistrationPending {
		return nil, invalid("status", fmt.Sprintf("registration is %s, not pending", reg.Status))
	}

	patch := store.Patch{"status": to}
	action := "approve"
	details := fmt.Sprintf("approved %s for %s", reg.StudentName, reg.EventName)
	if to == models.RegistrationRejected {
		patch["rejectedReason"] = reason
		action = "reject"
		details = fmt.Sprintf("rejected %s for %s: %s", reg.StudentName, reg.EventName, reason)
	}
	m.store.Registrations.Update(id, patch)
	updated, _ := m.store.Registrations.Find(id)
	m.audit(sess, action, targetRegistration, details)
	return updated, nil
}

// DeleteRegistration refuses while a result was recorded for the registration.
func (m *Service) DeleteRegistration(sess session.Session, id string) error {
	if err := staff(sess); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, err := m.scopedRegistration(sess, id)
	if err != nil {
		return err
	}
	if m.resultFor(id) != nil {
		return inUse(targetRegistration, id, "a result")
	}
	m.store.Registrations.Delete(id)
	m.audit(sess, "delete", targetRegistration, fmt.Sprintf("deleted registration %s for %s", reg.StudentName, reg.EventName))
	return nil
}

func (m *Service) scopedRegistration(sess session.Session, id string) (*models.Registration, error) {
	reg, ok := m.store.Registrations.Find(id)
	if !ok {
		return nil, notFound(targetRegistration, id)
	}
	if err := withinScope(sess, scope.Registrations, reg.ClassID); err != nil {
		return nil, err
	}
	return reg, nil
}

func (m *Service) registrationRefs(sess session.Session, studentID, eventID string) (*models.Student, *models.Event, error) {
	st, ok := m.store.Students.Find(studentID)
	if !ok {
		return nil, nil, invalid("studentId", "student does not exist")
	}
	event, ok := m.store.Events.Find(eventID)
	if !ok {
		return nil, nil, invalid("eventId", "event does not exist")
	}
	if err := withinScope(sess, scope.Registrations, st.ClassID); err != nil {
		return nil, nil, err
	}
	return st, event, nil
}

func (m *Service) duplicateRegistration(studentID, eventID, exceptID string) bool {
	for _, r := range m.store.RegistrationsByEvent(eventID) {
		if r.StudentID == studentID && r.ID != exceptID {
			return true
		}
	}
	return false
}

// eventFull counts non-rejected registrations against the event's cap.
func (m *Service) eventFull(event *models.Event, exceptID string) bool {
	if event.MaxParticipants <= 0 {
		return false
	}
	taken := 0
	for _, r := range m.store.RegistrationsByEvent(event.ID) {
		if r.Status != models.RegistrationRejected && r.ID != exceptID {
			taken++
		}
	}
	return taken >= event.MaxParticipants
}

func (m *Service) resultFor(registrationID string) *models.Result {
	for _, r := range m.store.Results.GetAll() {
		if r.RegistrationID == registrationID {
			return r
		}
	}
	return nil
}
