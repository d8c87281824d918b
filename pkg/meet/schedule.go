package meet

import (
	"fmt"
	"sort"

	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/session"
	"github.com/timoknapp/sports-meet/pkg/store"
)

type ScheduleFilter struct {
	Date   string
	Status models.ScheduleStatus
}

// Schedules lists schedule entries ordered by date, then sequence, then start time.
func (m *Service) Schedules(f ScheduleFilter) []*models.Schedule {
	out := m.store.Schedules.Filter(func(s *models.Schedule) bool {
		return (f.Date == "" || s.EventDate == f.Date) && (f.Status == "" || s.Status == f.Status)
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.EventDate != b.EventDate {
			return a.EventDate < b.EventDate
		}
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		return a.EventTime < b.EventTime
	})
	return out
}

// CreateSchedule copies name, gender and category from the event and starts
// the entry as scheduled.
func (m *Service) CreateSchedule(sess session.Session, s models.Schedule) (*models.Schedule, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	switch {
	case s.EventID == "":
		return nil, required("eventId")
	case s.EventDate == "":
		return nil, required("eventDate")
	case s.EventTime == "":
		return nil, required("eventTime")
	}
	event, ok := m.store.Events.Find(s.EventID)
	if !ok {
		return nil, invalid("eventId", "event does not exist")
	}
	s.EventName = event.Name
	s.Gender = event.Gender
	s.Category = event.Category
	s.Status = models.ScheduleScheduled

	created := m.store.Schedules.Add(&s)
	m.audit(sess, "create", targetSchedule, fmt.Sprintf("scheduled %s on %s %s", event.Name, s.EventDate, s.EventTime))
	return created, nil
}

func (m *Service) UpdateSchedule(sess session.Session, id string, patch store.Patch) (*models.Schedule, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	if err := checkPatch(patch, "eventId", "eventDate", "eventTime"); err != nil {
		return nil, err
	}
	if status, ok := patchString(patch, "status"); ok && !models.ScheduleStatus(status).Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown schedule status %q", status))
	}
	if eventID, ok := patchString(patch, "eventId"); ok {
		event, found := m.store.Events.Find(eventID)
		if !found {
			return nil, invalid("eventId", "event does not exist")
		}
		patch["eventName"] = event.Name
		patch["gender"] = event.Gender
		patch["category"] = event.Category
	}
	if err := applyPatch(m.store.Schedules, targetSchedule, id, patch); err != nil {
		return nil, err
	}
	updated, _ := m.store.Schedules.Find(id)
	m.audit(sess, "update", targetSchedule, "updated schedule for "+updated.EventName)
	return updated, nil
}

// SetScheduleStatus moves an entry between scheduled, ongoing and completed.
func (m *Service) SetScheduleStatus(sess session.Session, id string, status models.ScheduleStatus) (*models.Schedule, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown schedule status %q", status))
	}
	if err := applyPatch(m.store.Schedules, targetSchedule, id, store.Patch{"status": status}); err != nil {
		return nil, err
	}
	updated, _ := m.store.Schedules.Find(id)
	m.audit(sess, "update", targetSchedule, fmt.Sprintf("%s is now %s", updated.EventName, status))
	return updated, nil
}

func (m *Service) DeleteSchedule(sess session.Session, id string) error {
	if err := superAdmin(sess); err != nil {
		return err
	}
	s, ok := m.store.Schedules.Find(id)
	if !ok {
		return notFound(targetSchedule, id)
	}
	m.store.Schedules.Delete(id)
	m.audit(sess, "delete", targetSchedule, "deleted schedule for "+s.EventName)
	return nil
}
