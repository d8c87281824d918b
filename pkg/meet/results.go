package meet

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/timoknapp/sports-meet/pkg/metrics"
	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/ranking"
	"github.com/timoknapp/sports-meet/pkg/scope"
	"github.com/timoknapp/sports-meet/pkg/session"
	"github.com/timoknapp/sports-meet/pkg/store"
)

type ResultFilter struct {
	ClassID string
	EventID string
}

// Results returns the visible results grouped by event in rank order.
// Unranked results sort after ranked ones.
func (m *Service) Results(sess session.Session, f ResultFilter) []*models.Result {
	visible := scope.Apply(sess.Scope(), scope.Results, m.store.Results.GetAll())
	out := make([]*models.Result, 0, len(visible))
	for _, r := range visible {
		if (f.ClassID == "" || r.ClassID == f.ClassID) && (f.EventID == "" || r.EventID == f.EventID) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EventName != out[j].EventName {
			return out[i].EventName < out[j].EventName
		}
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return rankKey(out[i].Rank) < rankKey(out[j].Rank)
	})
	return out
}

func rankKey(rank int) int {
	if rank <= 0 {
		return math.MaxInt
	}
	return rank
}

// RecordResult stores the score for an approved registration and re-ranks
// the event. Only one result per registration is allowed.
func (m *Service) RecordResult(sess session.Session, registrationID, score string) (*models.Result, error) {
	if err := staff(sess); err != nil {
		return nil, err
	}
	if registrationID == "" {
		return nil, required("registrationId")
	}
	if score == "" {
		return nil, required("score")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	reg, err := m.scopedRegistration(sess, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationApproved {
		return nil, ErrNotApproved
	}
	if m.resultFor(registrationID) != nil {
		return nil, ErrResultExists
	}
	event, ok := m.store.Events.Find(reg.EventID)
	if !ok {
		return nil, invalid("registrationId", "event of the registration does not exist")
	}

	created := m.store.Results.Add(&models.Result{
		RegistrationID: reg.ID,
		StudentID:      reg.StudentID,
		StudentName:    reg.StudentName,
		ClassID:        reg.ClassID,
		ClassName:      reg.ClassName,
		EventID:        event.ID,
		EventName:      event.Name,
		Score:          score,
		RecordedBy:     sess.UserName,
	})
	metrics.ResultRecorded()
	m.audit(sess, "create", targetResult, fmt.Sprintf("recorded %s for %s in %s", score, reg.StudentName, event.Name))

	if _, err := m.recompute(event.ID); err != nil {
		return nil, err
	}
	ranked, _ := m.store.Results.Find(created.ID)
	return ranked, nil
}

// UpdateScore edits a result's score and re-ranks its event.
func (m *Service) UpdateScore(sess session.Session, id, score string) (*models.Result, error) {
	if err := staff(sess); err != nil {
		return nil, err
	}
	if score == "" {
		return nil, required("score")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := m.scopedResult(sess, id)
	if err != nil {
		return nil, err
	}
	m.store.Results.Update(id, store.Patch{
		"score":       score,
		"updatedBy":   sess.UserName,
		"updatedTime": models.FormatTime(m.store.Now()),
	})
	m.audit(sess, "update", targetResult, fmt.Sprintf("changed %s in %s from %s to %s", result.StudentName, result.EventName, result.Score, score))

	if _, err := m.recompute(result.EventID); err != nil {
		return nil, err
	}
	updated, _ := m.store.Results.Find(id)
	return updated, nil
}

// DeleteResult removes a result and re-ranks the remaining results of its event.
func (m *Service) DeleteResult(sess session.Session, id string) error {
	if err := staff(sess); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := m.scopedResult(sess, id)
	if err != nil {
		return err
	}
	m.store.Results.Delete(id)
	m.audit(sess, "delete", targetResult, fmt.Sprintf("deleted result of %s in %s", result.StudentName, result.EventName))

	if _, err := m.recompute(result.EventID); err != nil && !errors.Is(err, ranking.ErrEventNotFound) {
		return err
	}
	return nil
}

// RecomputeEvent re-ranks one event on demand and reports how many results changed.
func (m *Service) RecomputeEvent(sess session.Session, eventID string) (int, error) {
	if err := superAdmin(sess); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	changed, err := m.recompute(eventID)
	if errors.Is(err, ranking.ErrEventNotFound) {
		return 0, notFound(targetEvent, eventID)
	}
	return changed, err
}

func (m *Service) scopedResult(sess session.Session, id string) (*models.Result, error) {
	result, ok := m.store.Results.Find(id)
	if !ok {
		return nil, notFound(targetResult, id)
	}
	if err := withinScope(sess, scope.Results, result.ClassID); err != nil {
		return nil, err
	}
	return result, nil
}

// recompute re-ranks an event. Callers hold m.mu.
func (m *Service) recompute(eventID string) (int, error) {
	changed, err := m.ranking.Recompute(eventID)
	if err != nil {
		return 0, err
	}
	metrics.RankingRecomputed(changed)
	return changed, nil
}
