package models

import "time"

// TimeFormat is the layout used for every persisted timestamp.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FormatTime formats t as a persisted timestamp in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// Entity is implemented by every record kept in a collection.
type Entity interface {
	GetID() string
	SetID(id string)
}

// Stamped entities carry a creation timestamp assigned by the store on add.
type Stamped interface {
	Stamp(now time.Time)
}

// ClassScoped records carry the class they belong to.
type ClassScoped interface {
	GetClassID() string
}

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	ClassID   string `json:"classId,omitempty"`
	ClassName string `json:"className,omitempty"`
}

type Event struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Type            EventType   `json:"type"`
	ScoringType     ScoringType `json:"scoringType"`
	Category        string      `json:"category"`
	Description     string      `json:"description,omitempty"`
	MaxParticipants int         `json:"maxParticipants,omitempty"`
	Gender          Gender      `json:"gender"`
}

type Class struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Grade        string `json:"grade"`
	Teacher      string `json:"teacher,omitempty"`
	StudentCount int    `json:"studentCount,omitempty"`
}

type Student struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ClassID       string `json:"classId"`
	ClassName     string `json:"className"`
	StudentNumber string `json:"studentNumber"`
	Gender        Gender `json:"gender"`
	Age           int    `json:"age,omitempty"`
}

type Registration struct {
	ID               string             `json:"id"`
	StudentID        string             `json:"studentId"`
	StudentName      string             `json:"studentName"`
	ClassID          string             `json:"classId"`
	ClassName        string             `json:"className"`
	EventID          string             `json:"eventId"`
	EventName        string             `json:"eventName"`
	Status           RegistrationStatus `json:"status"`
	RegistrationTime string             `json:"registrationTime"`
	RejectedReason   string             `json:"rejectedReason,omitempty"`
}

type Schedule struct {
	ID        string         `json:"id"`
	EventID   string         `json:"eventId"`
	EventName string         `json:"eventName"`
	EventDate string         `json:"eventDate"`
	EventTime string         `json:"eventTime"`
	Venue     string         `json:"venue"`
	Status    ScheduleStatus `json:"status"`
	Sequence  int            `json:"sequence"`
	Gender    Gender         `json:"gender"`
	Category  string         `json:"category"`
}

// Result is one scored performance. Score is kept as entered ("12.5", "5.2m")
// and parsed only when ranking.
type Result struct {
	ID             string `json:"id"`
	RegistrationID string `json:"registrationId"`
	StudentID      string `json:"studentId"`
	StudentName    string `json:"studentName"`
	ClassID        string `json:"classId"`
	ClassName      string `json:"className"`
	EventID        string `json:"eventId"`
	EventName      string `json:"eventName"`
	Score          string `json:"score"`
	Rank           int    `json:"rank"`
	Points         int    `json:"points"`
	RecordedBy     string `json:"recordedBy"`
	RecordedTime   string `json:"recordedTime"`
	UpdatedBy      string `json:"updatedBy,omitempty"`
	UpdatedTime    string `json:"updatedTime,omitempty"`
}

type CertificateTemplate struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          AwardType  `json:"type"`
	Category      AwardScope `json:"category"`
	TemplateImage string     `json:"templateImage,omitempty"`
}

type Certificate struct {
	ID               string `json:"id"`
	StudentID        string `json:"studentId"`
	StudentName      string `json:"studentName"`
	ClassID          string `json:"classId"`
	ClassName        string `json:"className"`
	EventID          string `json:"eventId"`
	EventName        string `json:"eventName"`
	Rank             int    `json:"rank"`
	Points           int    `json:"points"`
	TemplateID       string `json:"templateId"`
	CertificateImage string `json:"certificateImage"`
	GeneratedAt      string `json:"generatedAt"`
}

type MeetInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Edition     int    `json:"edition"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	SchoolName  string `json:"schoolName"`
	SchoolLogo  string `json:"schoolLogo,omitempty"`
	Description string `json:"description,omitempty"`
}

// ClassScore is derived on demand and never persisted.
type ClassScore struct {
	ClassID      string `json:"classId"`
	ClassName    string `json:"className"`
	TotalPoints  int    `json:"totalPoints"`
	GoldMedals   int    `json:"goldMedals"`
	SilverMedals int    `json:"silverMedals"`
	BronzeMedals int    `json:"bronzeMedals"`
}

// EventStat is derived on demand and never persisted.
type EventStat struct {
	EventID           string  `json:"eventId"`
	EventName         string  `json:"eventName"`
	EventCategory     string  `json:"eventCategory"`
	TotalParticipants int     `json:"totalParticipants"`
	CompletedCount    int     `json:"completedCount"`
	CompletionRate    float64 `json:"completionRate"`
	ParticipationRate string  `json:"participationRate"`
}

type OperationLog struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Action    string `json:"action"`
	Target    string `json:"target"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp"`
}

func (u *User) GetID() string { return u.ID }
func (u *User) SetID(id string) { u.ID = id }
func (e *Event) GetID() string { return e.ID }
func (e *Event) SetID(id string) { e.ID = id }
func (c *Class) GetID() string { return c.ID }
func (c *Class) SetID(id string) { c.ID = id }
func (s *Student) GetID() string { return s.ID }
func (s *Student) SetID(id string) { s.ID = id }
func (r *Registration) GetID() string { return r.ID }
func (r *Registration) SetID(id string) { r.ID = id }
func (s *Schedule) GetID() string { return s.ID }
func (s *Schedule) SetID(id string) { s.ID = id }
func (r *Result) GetID() string { return r.ID }
func (r *Result) SetID(id string) { r.ID = id }
func (t *CertificateTemplate) GetID() string { return t.ID }
func (t *CertificateTemplate) SetID(id string) { t.ID = id }
func (c *Certificate) GetID() string { return c.ID }
func (c *Certificate) SetID(id string) { c.ID = id }
func (m *MeetInfo) GetID() string { return m.ID }
func (m *MeetInfo) SetID(id string) { m.ID = id }
func (l *OperationLog) GetID() string { return l.ID }
func (l *OperationLog) SetID(id string) { l.ID = id }

func (r *Registration) Stamp(now time.Time) { r.RegistrationTime = FormatTime(now) }
func (r *Result) Stamp(now time.Time) { r.RecordedTime = FormatTime(now) }
func (c *Certificate) Stamp(now time.Time) { c.GeneratedAt = FormatTime(now) }
func (l *OperationLog) Stamp(now time.Time) { l.Timestamp = FormatTime(now) }

func (s *Student) GetClassID() string { return s.ClassID }
func (r *Registration) GetClassID() string { return r.ClassID }
func (r *Result) GetClassID() string { return r.ClassID }
func (c *Certificate) GetClassID() string { return c.ClassID }
