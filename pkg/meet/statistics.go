package meet

import (
	"github.com/timoknapp/sports-meet/pkg/leaderboard"
	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/scope"
	"github.com/timoknapp/sports-meet/pkg/session"
	"github.com/timoknapp/sports-meet/pkg/store"
)

// ClassScores is the leaderboard as seen by the session. Class admins get
// the row of their own class only.
func (m *Service) ClassScores(sess session.Session) []models.ClassScore {
	sc := sess.Scope()
	classes := m.store.Classes.GetAll()
	if sc.ClassOnly(scope.Results) {
		own := make([]*models.Class, 0, 1)
		for _, c := range classes {
			if c.ID == sc.ClassID {
				own = append(own, c)
			}
		}
		classes = own
	}
	results := scope.Apply(sc, scope.Results, m.store.Results.GetAll())
	return leaderboard.ClassScores(classes, results)
}

// EventStats reports per event completion over the session's visible
// registrations and results.
func (m *Service) EventStats(sess session.Session) []models.EventStat {
	sc := sess.Scope()
	return leaderboard.EventStats(
		m.store.Events.GetAll(),
		scope.Apply(sc, scope.Registrations, m.store.Registrations.GetAll()),
		scope.Apply(sc, scope.Results, m.store.Results.GetAll()),
	)
}

// Dashboard returns the overview totals.
func (m *Service) Dashboard() store.Counts {
	return m.store.Counts()
}

// Logs returns up to limit operation log entries, newest first. A limit of
// zero or less returns all of them.
func (m *Service) Logs(sess session.Session, limit int) ([]*models.OperationLog, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	logs := m.store.Logs.GetAll()
	out := make([]*models.OperationLog, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		out = append(out, logs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
