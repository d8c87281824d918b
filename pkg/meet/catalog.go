package meet

import (
	"fmt"

	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/session"
	"github.com/timoknapp/sports-meet/pkg/store"
)

func (m *Service) Classes() []*models.Class {
	return m.store.Classes.GetAll()
}

func (m *Service) CreateClass(sess session.Session, c models.Class) (*models.Class, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	if c.Name == "" {
		return nil, required("name")
	}
	if c.Grade == "" {
		return nil, required("grade")
	}
	created := m.store.Classes.Add(&c)
	m.audit(sess, "create", targetClass, "created class "+created.Name)
	return created, nil
}

func (m *Service) UpdateClass(sess session.Session, id string, patch store.Patch) (*models.Class, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	if err := checkPatch(patch, "name", "grade"); err != nil {
		return nil, err
	}
	if err := applyPatch(m.store.Classes, targetClass, id, patch); err != nil {
		return nil, err
	}
	updated, _ := m.store.Classes.Find(id)
	m.audit(sess, "update", targetClass, "updated class "+updated.Name)
	return updated, nil
}

// DeleteClass refuses while students, registrations, results or
// certificates still reference the class.
func (m *Service) DeleteClass(sess session.Session, id string) error {
	if err := superAdmin(sess); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	class, ok := m.store.Classes.Find(id)
	if !ok {
		return notFound(targetClass, id)
	}
	switch {
	case len(m.store.StudentsByClass(id)) > 0:
		return inUse(targetClass, id, "students")
	case len(m.store.RegistrationsByClass(id)) > 0:
		return inUse(targetClass, id, "registrations")
	case len(m.store.ResultsByClass(id)) > 0:
		return inUse(targetClass, id, "results")
	case len(m.store.CertificatesByClass(id)) > 0:
		return inUse(targetClass, id, "certificates")
	}
	m.store.Classes.Delete(id)
	m.audit(sess, "delete", targetClass, "deleted class "+class.Name)
	return nil
}

// Students lists students, optionally limited to one class.
func (m *Service) Students(classID string) []*models.Student {
	if classID == "" {
		return m.store.Students.GetAll()
	}
	return m.store.StudentsByClass(classID)
}

func (m *Service) CreateStudent(sess session.Session, st models.Student) (*models.Student, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	switch {
	case st.Name == "":
		return nil, required("name")
	case st.StudentNumber == "":
		return nil, required("studentNumber")
	case st.ClassID == "":
		return nil, required("classId")
	case st.Gender != "" && !st.Gender.Valid():
		return nil, invalid("gender", fmt.Sprintf("unknown gender %q", st.Gender))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	class, ok := m.store.Classes.Find(st.ClassID)
	if !ok {
		return nil, invalid("classId", "class does not exist")
	}
	if m.studentNumberTaken(st.StudentNumber, "") {
		return nil, invalid("studentNumber", "student number is already in use")
	}
	st.ClassName = class.Name
	created := m.store.Students.Add(&st)
	m.audit(sess, "create", targetStudent, fmt.Sprintf("created student %s (%s)", created.Name, created.ClassName))
	return created, nil
}

func (m *Service) UpdateStudent(sess session.Session, id string, patch store.Patch) (*models.Student, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	if err := checkPatch(patch, "name", "studentNumber", "classId"); err != nil {
		return nil, err
	}
	if g, ok := patchString(patch, "gender"); ok && g != "" && !models.Gender(g).Valid() {
		return nil, invalid("gender", fmt.Sprintf("unknown gender %q", g))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if number, ok := patchString(patch, "studentNumber"); ok && m.studentNumberTaken(number, id) {
		return nil, invalid("studentNumber", "student number is already in use")
	}
	if classID, ok := patchString(patch, "classId"); ok {
		class, found := m.store.Classes.Find(classID)
		if !found {
			return nil, invalid("classId", "class does not exist")
		}
		patch["className"] = class.Name
	}
	if err := applyPatch(m.store.Students, targetStudent, id, patch); err != nil {
		return nil, err
	}
	updated, _ := m.store.Students.Find(id)
	m.audit(sess, "update", targetStudent, "updated student "+updated.Name)
	return updated, nil
}

func (m *Service) DeleteStudent(sess session.Session, id string) error {
	if err := superAdmin(sess); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.store.Students.Find(id)
	if !ok {
		return notFound(targetStudent, id)
	}
	if regs := m.store.Registrations.Filter(func(r *models.Registration) bool { return r.StudentID == id }); len(regs) > 0 {
		return inUse(targetStudent, id, "registrations")
	}
	if len(m.store.CertificatesByStudent(id)) > 0 {
		return inUse(targetStudent, id, "certificates")
	}
	m.store.Students.Delete(id)
	m.audit(sess, "delete", targetStudent, "deleted student "+st.Name)
	return nil
}

func (m *Service) studentNumberTaken(number, exceptID string) bool {
	for _, st := range m.store.Students.GetAll() {
		if st.StudentNumber == number && st.ID != exceptID {
			return true
		}
	}
	return false
}

func (m *Service) Events() []*models.Event {
	return m.store.Events.GetAll()
}

func validateEvent(e models.Event) error {
	switch {
	case e.Name == "":
		return required("name")
	case !e.Type.Valid():
		return invalid("type", fmt.Sprintf("unknown event type %q", e.Type))
	case !e.ScoringType.Valid():
		return invalid("scoringType", fmt.Sprintf("unknown scoring type %q", e.ScoringType))
	case e.Gender != "" && !e.Gender.Valid():
		return invalid("gender", fmt.Sprintf("unknown gender %q", e.Gender))
	case e.MaxParticipants < 0:
		return invalid("maxParticipants", "must not be negative")
	}
	return nil
}

func (m *Service) CreateEvent(sess session.Session, e models.Event) (*models.Event, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	if e.Gender == "" {
		e.Gender = models.GenderMixed
	}
	if err := validateEvent(e); err != nil {
		return nil, err
	}
	created := m.store.Events.Add(&e)
	m.audit(sess, "create", targetEvent, "created event "+created.Name)
	return created, nil
}

// UpdateEvent applies patch and re-ranks the event when its scoring type changed.
func (m *Service) UpdateEvent(sess session.Session, id string, patch store.Patch) (*models.Event, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	if err := validateEventPatch(patch); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.store.Events.Find(id)
	if !ok {
		return nil, notFound(targetEvent, id)
	}
	if err := applyPatch(m.store.Events, targetEvent, id, patch); err != nil {
		return nil, err
	}
	updated, _ := m.store.Events.Find(id)
	if updated.ScoringType != current.ScoringType {
		if _, err := m.recompute(id); err != nil {
			return nil, err
		}
	}
	m.audit(sess, "update", targetEvent, "updated event "+updated.Name)
	return updated, nil
}

func validateEventPatch(patch store.Patch) error {
	if err := checkPatch(patch, "name", "type", "scoringType"); err != nil {
		return err
	}
	if t, ok := patchString(patch, "type"); ok && !models.EventType(t).Valid() {
		return invalid("type", fmt.Sprintf("unknown event type %q", t))
	}
	if t, ok := patchString(patch, "scoringType"); ok && !models.ScoringType(t).Valid() {
		return invalid("scoringType", fmt.Sprintf("unknown scoring type %q", t))
	}
	if g, ok := patchString(patch, "gender"); ok && g != "" && !models.Gender(g).Valid() {
		return invalid("gender", fmt.Sprintf("unknown gender %q", g))
	}
	if v, ok := patch["maxParticipants"]; ok {
		n, isNumber := patchNumber(v)
		if !isNumber || n < 0 {
			return invalid("maxParticipants", "must be a non-negative number")
		}
	}
	return nil
}

func (m *Service) DeleteEvent(sess session.Session, id string) error {
	if err := superAdmin(sess); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	event, ok := m.store.Events.Find(id)
	if !ok {
		return notFound(targetEvent, id)
	}
	switch {
	case len(m.store.RegistrationsByEvent(id)) > 0:
		return inUse(targetEvent, id, "registrations")
	case len(m.store.ResultsByEvent(id)) > 0:
		return inUse(targetEvent, id, "results")
	case len(m.store.Schedules.Filter(func(s *models.Schedule) bool { return s.EventID == id })) > 0:
		return inUse(targetEvent, id, "schedules")
	case len(m.store.Certificates.Filter(func(c *models.Certificate) bool { return c.EventID == id })) > 0:
		return inUse(targetEvent, id, "certificates")
	}
	m.store.Events.Delete(id)
	m.audit(sess, "delete", targetEvent, "deleted event "+event.Name)
	return nil
}

// Users lists accounts with their password fields cleared.
func (m *Service) Users(sess session.Session) ([]*models.User, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	users := m.store.Users.GetAll()
	for _, u := range users {
		u.Password = ""
	}
	return users, nil
}

func (m *Service) CreateUser(sess session.Session, u models.User) (*models.User, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	switch {
	case u.Username == "":
		return nil, required("username")
	case u.Name == "":
		return nil, required("name")
	case u.Password == "":
		return nil, required("password")
	case !u.Role.Valid():
		return nil, invalid("role", fmt.Sprintf("unknown role %q", u.Role))
	case u.Role == models.RoleClassAdmin && u.ClassID == "":
		return nil, required("classId")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.usernameTaken(u.Username, "") {
		return nil, invalid("username", "username is already in use")
	}
	if err := m.resolveUserClass(&u); err != nil {
		return nil, err
	}
	hash, err := m.auth.Hasher().Hash(u.Password)
	if err != nil {
		return nil, err
	}
	u.Password = hash
	created := m.store.Users.Add(&u)
	m.audit(sess, "create", targetUser, "created user "+created.Name)

	out := *created
	out.Password = ""
	return &out, nil
}

func (m *Service) UpdateUser(sess session.Session, id string, patch store.Patch) (*models.User, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	if err := checkPatch(patch, "username", "name", "password", "role"); err != nil {
		return nil, err
	}
	if role, ok := patchString(patch, "role"); ok && !models.Role(role).Valid() {
		return nil, invalid("role", fmt.Sprintf("unknown role %q", role))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.store.Users.Find(id)
	if !ok {
		return nil, notFound(targetUser, id)
	}
	role, classID := current.Role, current.ClassID
	if v, ok := patchString(patch, "role"); ok {
		role = models.Role(v)
	}
	if v, ok := patchString(patch, "classId"); ok {
		classID = v
	}
	if role == models.RoleClassAdmin && classID == "" {
		return nil, required("classId")
	}
	if username, ok := patchString(patch, "username"); ok && m.usernameTaken(username, id) {
		return nil, invalid("username", "username is already in use")
	}
	if classID, ok := patchString(patch, "classId"); ok {
		u := models.User{ClassID: classID}
		if err := m.resolveUserClass(&u); err != nil {
			return nil, err
		}
		patch["className"] = u.ClassName
	}
	if password, ok := patchString(patch, "password"); ok {
		hash, err := m.auth.Hasher().Hash(password)
		if err != nil {
			return nil, err
		}
		patch["password"] = hash
	}
	if err := applyPatch(m.store.Users, targetUser, id, patch); err != nil {
		return nil, err
	}
	updated, _ := m.store.Users.Find(id)
	m.audit(sess, "update", targetUser, "updated user "+updated.Name)
	updated.Password = ""
	return updated, nil
}

// DeleteUser refuses to delete the caller's own account.
func (m *Service) DeleteUser(sess session.Session, id string) error {
	if err := superAdmin(sess); err != nil {
		return err
	}
	if id == sess.UserID {
		return invalid("id", "cannot delete the signed-in user")
	}
	u, ok := m.store.Users.Find(id)
	if !ok {
		return notFound(targetUser, id)
	}
	m.store.Users.Delete(id)
	m.audit(sess, "delete", targetUser, "deleted user "+u.Name)
	return nil
}

func (m *Service) usernameTaken(username, exceptID string) bool {
	for _, u := range m.store.Users.GetAll() {
		if u.Username == username && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (m *Service) resolveUserClass(u *models.User) error {
	if u.ClassID == "" {
		u.ClassName = ""
		return nil
	}
	class, ok := m.store.Classes.Find(u.ClassID)
	if !ok {
		return invalid("classId", "class does not exist")
	}
	u.ClassName = class.Name
	return nil
}

func (m *Service) MeetInfo() (*models.MeetInfo, bool) {
	return m.store.MeetInfo()
}

func (m *Service) SaveMeetInfo(sess session.Session, info models.MeetInfo) (models.MeetInfo, error) {
	if err := superAdmin(sess); err != nil {
		return models.MeetInfo{}, err
	}
	switch {
	case info.Name == "":
		return models.MeetInfo{}, required("name")
	case info.Edition < 1:
		return models.MeetInfo{}, invalid("edition", "must be at least 1")
	case info.SchoolName == "":
		return models.MeetInfo{}, required("schoolName")
	}
	if current, ok := m.store.MeetInfo(); ok {
		info.ID = current.ID
	}
	saved := m.store.SaveMeetInfo(info)
	m.audit(sess, "update", targetMeet, "updated meet information "+saved.Name)
	return saved, nil
}
