package meet

import (
	"fmt"
	"io"
	"strings"

	"github.com/timoknapp/sports-meet/pkg/export"
	"github.com/timoknapp/sports-meet/pkg/session"
	"github.com/timoknapp/sports-meet/pkg/store"
)

// Export returns the full data snapshot.
func (m *Service) Export(sess session.Session) (store.Snapshot, error) {
	if err := superAdmin(sess); err != nil {
		return store.Snapshot{}, err
	}
	snap := m.store.Export()
	m.audit(sess, "export", targetData, "exported all data")
	return snap, nil
}

// Import overwrites the collections present in data. Malformed input
// changes nothing.
func (m *Service) Import(sess session.Session, data []byte) ([]string, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	imported, err := m.store.Import(data)
	if err != nil {
		return nil, invalid("data", err.Error())
	}
	m.audit(sess, "import", targetData, "imported "+strings.Join(imported, ", "))
	return imported, nil
}

// Reset clears every collection and seeds the default administrator again.
func (m *Service) Reset(sess session.Session) error {
	if err := superAdmin(sess); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.Reset()
	if _, err := m.auth.EnsureDefaultAdmin(); err != nil {
		return err
	}
	m.audit(sess, "reset", targetData, "cleared all data")
	m.log.Warn("All data cleared by %s", sess.UserName)
	return nil
}

// ExportCSV writes one of the CSV downloads over the session's visible data.
func (m *Service) ExportCSV(sess session.Session, kind export.Kind, w io.Writer) error {
	if err := staff(sess); err != nil {
		return err
	}
	var err error
	switch kind {
	case export.KindRegistrations:
		err = export.Registrations(w, m.Registrations(sess, RegistrationFilter{}), m.loc)
	case export.KindResults:
		err = export.Results(w, m.Results(sess, ResultFilter{}), m.loc)
	case export.KindClassScores:
		err = export.ClassScores(w, m.ClassScores(sess))
	case export.KindEventStats:
		err = export.EventStats(w, m.EventStats(sess))
	default:
		return invalid("kind", fmt.Sprintf("unknown export %q", kind))
	}
	if err != nil {
		return err
	}
	m.audit(sess, "export", targetData, "exported "+string(kind))
	return nil
}
