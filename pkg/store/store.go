package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timoknapp/sports-meet/pkg/logger"
	"github.com/timoknapp/sports-meet/pkg/models"
)

// Persisted keys, one per collection.
const (
	KeyUsers                = "meet_users"
	KeyEvents               = "meet_events"
	KeyClasses              = "meet_classes"
	KeyStudents             = "meet_students"
	KeyRegistrations        = "meet_registrations"
	KeySchedules            = "meet_schedules"
	KeyResults              = "meet_results"
	KeyCertificateTemplates = "meet_certificate_templates"
	KeyCertificates         = "meet_certificates"
	KeyMeetInfo             = "meet_info"
	KeyLogs                 = "meet_logs"
	KeyCurrentUser          = "meet_current_user"
)

// MaxLogs is the number of operation log entries kept; older ones are evicted.
const MaxLogs = 1000

// AllKeys lists every key the store writes, in export order.
var AllKeys = []string{
	KeyUsers, KeyEvents, KeyClasses, KeyStudents, KeyRegistrations, KeySchedules,
	KeyResults, KeyCertificateTemplates, KeyCertificates, KeyMeetInfo, KeyLogs, KeyCurrentUser,
}

// Store groups the meet's collections over a single Backend. Persistence
// failures never reach callers: reads degrade to empty and writes are
// dropped, both logged.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	root     *logger.Logger
	log      *logger.Logger
	now      func() time.Time
	failures atomic.Int64

	Users                *Collection[*models.User]
	Events               *Collection[*models.Event]
	Classes              *Collection[*models.Class]
	Students             *Collection[*models.Student]
	Registrations        *Collection[*models.Registration]
	Schedules            *Collection[*models.Schedule]
	Results              *Collection[*models.Result]
	CertificateTemplates *Collection[*models.CertificateTemplate]
	Certificates         *Collection[*models.Certificate]
	Logs                 *Collection[*models.OperationLog]

	meetInfo *Collection[*models.MeetInfo]
}

type Option func(*Store)

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger the store and every component built on it
// log through.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.root = l }
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		root:    logger.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.root.Named("store")

	s.Users = newCollection[*models.User](s, KeyUsers)
	s.Events = newCollection[*models.Event](s, KeyEvents)
	s.Classes = newCollection[*models.Class](s, KeyClasses)
	s.Students = newCollection[*models.Student](s, KeyStudents)
	s.Registrations = newCollection[*models.Registration](s, KeyRegistrations)
	s.Schedules = newCollection[*models.Schedule](s, KeySchedules)
	s.Results = newCollection[*models.Result](s, KeyResults)
	s.CertificateTemplates = newCollection[*models.CertificateTemplate](s, KeyCertificateTemplates)
	s.Certificates = newCollection[*models.Certificate](s, KeyCertificates)
	s.Logs = newCollection[*models.OperationLog](s, KeyLogs)
	s.meetInfo = newCollection[*models.MeetInfo](s, KeyMeetInfo)
	return s
}

func (s *Store) Now() time.Time {
	return s.now()
}

// Logger returns a child of the store's logger for the named component.
func (s *Store) Logger(component string) *logger.Logger {
	return s.root.Named(component)
}

// PersistenceFailures counts swallowed read/write errors since start.
func (s *Store) PersistenceFailures() int64 {
	return s.failures.Load()
}

func (s *Store) fail(format string, args ...interface{}) {
	s.failures.Add(1)
	s.log.Error(format, args...)
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// AddLog appends an operation log entry and keeps only the newest MaxLogs.
func (s *Store) AddLog(entry models.OperationLog) models.OperationLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := s.Logs.load()
	now := s.now()
	entry.ID = NewID(now, idSet(logs))
	entry.Stamp(now)
	logs = append(logs, &entry)
	if len(logs) > MaxLogs {
		logs = logs[len(logs)-MaxLogs:]
	}
	s.Logs.save(logs)
	return entry
}

// MeetInfo returns the singleton meet description, if configured.
func (s *Store) MeetInfo() (*models.MeetInfo, bool) {
	infos := s.meetInfo.GetAll()
	if len(infos) == 0 {
		return nil, false
	}
	return infos[0], true
}

// SaveMeetInfo stores info as a one-element list, assigning an id on first save.
func (s *Store) SaveMeetInfo(info models.MeetInfo) models.MeetInfo {
	if info.ID == "" {
		info.ID = NewID(s.now(), nil)
	}
	s.meetInfo.SaveAll([]*models.MeetInfo{&info})
	return info
}

// CurrentUserID returns the persisted current-session pointer. The service
// layer passes explicit sessions; this key is kept so exported data matches
// the stored layout.
func (s *Store) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, found, err := s.backend.Load(KeyCurrentUser)
	if err != nil {
		s.fail("Error reading %s: %v", KeyCurrentUser, err)
		return ""
	}
	if !found {
		return ""
	}
	return string(data)
}

func (s *Store) SetCurrentUserID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Save(KeyCurrentUser, []byte(id)); err != nil {
		s.fail("Error saving %s: %v", KeyCurrentUser, err)
	}
}

// Reset removes every key the store owns.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range AllKeys {
		if err := s.backend.Remove(key); err != nil {
			s.fail("Error removing %s: %v", key, err)
		}
	}
}

// Counts backs the dashboard overview.
type Counts struct {
	Classes       int `json:"totalClasses"`
	Students      int `json:"totalStudents"`
	Events        int `json:"totalEvents"`
	Registrations int `json:"totalRegistrations"`
	Results       int `json:"totalResults"`
	Certificates  int `json:"totalCertificates"`
}

// Counts reports collection sizes; only approved registrations are counted.
func (s *Store) Counts() Counts {
	approved := s.Registrations.Filter(func(r *models.Registration) bool {
		return r.Status == models.RegistrationApproved
	})
	return Counts{
		Classes:       s.Classes.Count(),
		Students:      s.Students.Count(),
		Events:        s.Events.Count(),
		Registrations: len(approved),
		Results:       s.Results.Count(),
		Certificates:  s.Certificates.Count(),
	}
}

func (s *Store) StudentsByClass(classID string) []*models.Student {
	return s.Students.Filter(func(st *models.Student) bool { return st.ClassID == classID })
}

func (s *Store) RegistrationsByClass(classID string) []*models.Registration {
	return s.Registrations.Filter(func(r *models.Registration) bool { return r.ClassID == classID })
}

func (s *Store) RegistrationsByEvent(eventID string) []*models.Registration {
	return s.Registrations.Filter(func(r *models.Registration) bool { return r.EventID == eventID })
}

func (s *Store) ResultsByEvent(eventID string) []*models.Result {
	return s.Results.Filter(func(r *models.Result) bool { return r.EventID == eventID })
}

func (s *Store) ResultsByClass(classID string) []*models.Result {
	return s.Results.Filter(func(r *models.Result) bool { return r.ClassID == classID })
}

func (s *Store) CertificatesByStudent(studentID string) []*models.Certificate {
	return s.Certificates.Filter(func(c *models.Certificate) bool { return c.StudentID == studentID })
}

func (s *Store) CertificatesByClass(classID string) []*models.Certificate {
	return s.Certificates.Filter(func(c *models.Certificate) bool { return c.ClassID == classID })
}

// Snapshot is the full-state export document.
type Snapshot struct {
	Users                []*models.User                `json:"users"`
	Events               []*models.Event               `json:"events"`
	Classes              []*models.Class               `json:"classes"`
	Students             []*models.Student             `json:"students"`
	Registrations        []*models.Registration        `json:"registrations"`
	Schedules            []*models.Schedule            `json:"schedules"`
	Results              []*models.Result              `json:"results"`
	CertificateTemplates []*models.CertificateTemplate `json:"certificateTemplates"`
	Certificates         []*models.Certificate         `json:"certificates"`
	MeetInfo             *models.MeetInfo              `json:"meetInfo"`
	Logs                 []*models.OperationLog        `json:"logs"`
	ExportTime           string                        `json:"exportTime"`
}

func (s *Store) Export() Snapshot {
	info, _ := s.MeetInfo()
	return Snapshot{
		Users:                s.Users.GetAll(),
		Events:               s.Events.GetAll(),
		Classes:              s.Classes.GetAll(),
		Students:             s.Students.GetAll(),
		Registrations:        s.Registrations.GetAll(),
		Schedules:            s.Schedules.GetAll(),
		Results:              s.Results.GetAll(),
		CertificateTemplates: s.CertificateTemplates.GetAll(),
		Certificates:         s.Certificates.GetAll(),
		MeetInfo:             info,
		Logs:                 s.Logs.GetAll(),
		ExportTime:           models.FormatTime(s.now()),
	}
}

// Import overwrites every collection present (and non-null) in data and
// leaves the others untouched. It returns the snapshot names that were
// written. Nothing is written when any present collection fails to decode.
func (s *Store) Import(data []byte) ([]string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var writes []func()
	var imported []string
	add := func(name string, decode func(json.RawMessage) (func(), error)) error {
		raw, ok := doc[name]
		if !ok || string(raw) == "null" {
			return nil
		}
		write, err := decode(raw)
		if err != nil {
			return &ImportError{Field: name, Err: err}
		}
		writes = append(writes, write)
		imported = append(imported, name)
		return nil
	}

	steps := []struct {
		name   string
		decode func(json.RawMessage) (func(), error)
	}{
		{"users", decodeInto(s.Users)},
		{"events", decodeInto(s.Events)},
		{"classes", decodeInto(s.Classes)},
		{"students", decodeInto(s.Students)},
		{"registrations", decodeInto(s.Registrations)},
		{"schedules", decodeInto(s.Schedules)},
		{"results", decodeInto(s.Results)},
		{"certificateTemplates", decodeInto(s.CertificateTemplates)},
		{"certificates", decodeInto(s.Certificates)},
		{"meetInfo", func(raw json.RawMessage) (func(), error) {
			var info models.MeetInfo
			if err := json.Unmarshal(raw, &info); err != nil {
				return nil, err
			}
			return func() { s.SaveMeetInfo(info) }, nil
		}},
		{"logs", decodeInto(s.Logs)},
	}
	for _, step := range steps {
		if err := add(step.name, step.decode); err != nil {
			return nil, err
		}
	}

	for _, write := range writes {
		write()
	}
	s.log.Info("Imported collections: %v", imported)
	return imported, nil
}

func decodeInto[T models.Entity](c *Collection[T]) func(json.RawMessage) (func(), error) {
	return func(raw json.RawMessage) (func(), error) {
		items, dropped, err := decodeItems[T](raw)
		if err != nil {
			return nil, err
		}
		if dropped > 0 {
			return nil, fmt.Errorf("%d null records: %w", dropped, ErrNullRecord)
		}
		return func() { c.SaveAll(items) }, nil
	}
}

// ErrNullRecord rejects imported collections holding null elements.
var ErrNullRecord = errors.New("null record")

// ImportError names the snapshot field that could not be decoded.
type ImportError struct {
	Field string
	Err   error
}

func (e *ImportError) Error() string {
	return "import " + e.Field + ": " + e.Err.Error()
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
