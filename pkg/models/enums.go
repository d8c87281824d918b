package models

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleClassAdmin Role = "class_admin"
	RoleStudent    Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleClassAdmin, RoleStudent:
		return true
	}
	return false
}

type EventType string

const (
	EventTrack EventType = "track" // running
	EventField EventType = "field" // jumps and throws
	EventRelay EventType = "relay"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTrack, EventField, EventRelay:
		return true
	}
	return false
}

// ScoringType selects the comparison used to order an event's results.
type ScoringType string

const (
	ScoringTimeAsc  ScoringType = "time_asc"  // smaller time wins
	ScoringTimeDesc ScoringType = "time_desc" // larger time wins
	ScoringDistance ScoringType = "distance"
	ScoringHeight   ScoringType = "height"
	ScoringPoints   ScoringType = "points"
)

func (s ScoringType) Valid() bool {
	switch s {
	case ScoringTimeAsc, ScoringTimeDesc, ScoringDistance, ScoringHeight, ScoringPoints:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderMixed  Gender = "mixed"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderMixed:
		return true
	}
	return false
}

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "scheduled"
	ScheduleOngoing   ScheduleStatus = "ongoing"
	ScheduleCompleted ScheduleStatus = "completed"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleScheduled, ScheduleOngoing, ScheduleCompleted:
		return true
	}
	return false
}

type AwardType string

const (
	AwardFirst         AwardType = "first"
	AwardSecond        AwardType = "second"
	AwardThird         AwardType = "third"
	AwardExcellence    AwardType = "excellence"
	AwardParticipation AwardType = "participation"
)

type AwardScope string

const (
	AwardIndividual AwardScope = "individual"
	AwardTeam       AwardScope = "team"
)

func (t AwardType) Valid() bool {
	switch t {
	case AwardFirst, AwardSecond, AwardThird, AwardExcellence, AwardParticipation:
		return true
	}
	return false
}

func (s AwardScope) Valid() bool {
	switch s {
	case AwardIndividual, AwardTeam:
		return true
	}
	return false
}
