package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timoknapp/sports-meet/pkg/logger"
	"github.com/timoknapp/sports-meet/pkg/models"
)

var fixedNow = time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(NewMemoryBackend(), WithClock(func() time.Time { return fixedNow }))
}

func TestGetAllNeverInitialized(t *testing.T) {
	s := newTestStore(t)

	classes := s.Classes.GetAll()
	assert.NotNil(t, classes)
	assert.Empty(t, classes)
}

func TestAddAssignsFreshIDs(t *testing.T) {
	s := newTestStore(t)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c := s.Classes.Add(&models.Class{Name: "Class", Grade: "1"})
		require.NotEmpty(t, c.ID)
		assert.False(t, seen[c.ID], "id %s reused", c.ID)
		seen[c.ID] = true
	}

	all := s.Classes.GetAll()
	assert.Len(t, all, 50)
	for _, c := range all {
		assert.True(t, seen[c.ID])
	}
}

func TestAddIgnoresCallerID(t *testing.T) {
	s := newTestStore(t)
	first := s.Events.Add(&models.Event{Name: "100m"})
	second := s.Events.Add(&models.Event{ID: first.ID, Name: "200m"})
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAddStampsCreationTime(t *testing.T) {
	s := newTestStore(t)

	reg := s.Registrations.Add(&models.Registration{StudentID: "s1", EventID: "e1", Status: models.RegistrationPending})
	res := s.Results.Add(&models.Result{RegistrationID: reg.ID, Score: "12.8"})
	cert := s.Certificates.Add(&models.Certificate{StudentID: "s1"})

	want := models.FormatTime(fixedNow)
	assert.Equal(t, want, reg.RegistrationTime)
	assert.Equal(t, want, res.RecordedTime)
	assert.Equal(t, want, cert.GeneratedAt)
}

func TestUpdateMergesShallow(t *testing.T) {
	s := newTestStore(t)
	r := s.Results.Add(&models.Result{StudentName: "Li Hua", Score: "13.2", EventID: "e1"})

	ok := s.Results.Update(r.ID, Patch{"rank": 2, "points": 8, "id": "hijack"})
	require.True(t, ok)

	got, found := s.Results.Find(r.ID)
	require.True(t, found)
	assert.Equal(t, 2, got.Rank)
	assert.Equal(t, 8, got.Points)
	assert.Equal(t, "13.2", got.Score)
	assert.Equal(t, "Li Hua", got.StudentName)
	assert.Equal(t, r.ID, got.ID)
}

func TestUpdateMissingLeavesCollectionUnchanged(t *testing.T) {
	s := newTestStore(t)
	s.Classes.Add(&models.Class{Name: "A"})
	s.Classes.Add(&models.Class{Name: "B"})

	before, _ := json.Marshal(s.Classes.GetAll())
	ok := s.Classes.Update("missing", Patch{"name": "C"})
	after, _ := json.Marshal(s.Classes.GetAll())

	assert.False(t, ok)
	assert.JSONEq(t, string(before), string(after))
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	a := s.Students.Add(&models.Student{Name: "A"})
	b := s.Students.Add(&models.Student{Name: "B"})
	c := s.Students.Add(&models.Student{Name: "C"})

	assert.False(t, s.Students.Delete("missing"))
	assert.Len(t, s.Students.GetAll(), 3)

	assert.True(t, s.Students.Delete(b.ID))
	remaining := s.Students.GetAll()
	require.Len(t, remaining, 2)
	assert.Equal(t, a.ID, remaining[0].ID)
	assert.Equal(t, c.ID, remaining[1].ID)
}

func TestAddLogCapsAtMaxLogs(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < MaxLogs+5; i++ {
		s.AddLog(models.OperationLog{UserID: "u", Action: "create", Details: string(rune('a' + i%26))})
	}

	logs := s.Logs.GetAll()
	assert.Len(t, logs, MaxLogs)
	last := s.AddLog(models.OperationLog{Action: "last"})
	logs = s.Logs.GetAll()
	assert.Len(t, logs, MaxLogs)
	assert.Equal(t, last.ID, logs[len(logs)-1].ID)
	assert.Equal(t, models.FormatTime(fixedNow), last.Timestamp)
}

func TestMeetInfoSingleton(t *testing.T) {
	s := newTestStore(t)
	_, ok := s.MeetInfo()
	assert.False(t, ok)

	saved := s.SaveMeetInfo(models.MeetInfo{Name: "Spring Games", Edition: 12, SchoolName: "No.1 School"})
	assert.NotEmpty(t, saved.ID)
	s.SaveMeetInfo(models.MeetInfo{ID: saved.ID, Name: "Autumn Games", Edition: 13})

	info, ok := s.MeetInfo()
	require.True(t, ok)
	assert.Equal(t, "Autumn Games", info.Name)

	raw, found, err := s.backend.Load(KeyMeetInfo)
	require.NoError(t, err)
	require.True(t, found)
	var list []models.MeetInfo
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list, 1)
}

func TestCurrentUserPointer(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, "", s.CurrentUserID())
	s.SetCurrentUserID("u-1")
	assert.Equal(t, "u-1", s.CurrentUserID())
	s.SetCurrentUserID("")
	assert.Equal(t, "", s.CurrentUserID())
}

func TestCorruptDataDegradesToEmpty(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Save(KeyEvents, []byte("{not json")))

	var buf bytes.Buffer
	l := logger.NewLoggerWithLevel(logger.DebugLevel)
	l.SetOutput(&buf)
	s := New(backend, WithLogger(l))

	assert.Empty(t, s.Events.GetAll())
	assert.Equal(t, int64(1), s.PersistenceFailures())
	assert.Contains(t, buf.String(), "Error reading meet_events")
}

type brokenBackend struct {
	*MemoryBackend
	failSave bool
	failLoad bool
}

func (b *brokenBackend) Load(key string) ([]byte, bool, error) {
	if b.failLoad {
		return nil, false, errors.New("storage unavailable")
	}
	return b.MemoryBackend.Load(key)
}

func (b *brokenBackend) Save(key string, value []byte) error {
	if b.failSave {
		return errors.New("quota exceeded")
	}
	return b.MemoryBackend.Save(key, value)
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	backend := &brokenBackend{MemoryBackend: NewMemoryBackend(), failSave: true}
	l := logger.NewLogger()
	l.SetOutput(&bytes.Buffer{})
	s := New(backend, WithLogger(l))

	c := s.Classes.Add(&models.Class{Name: "A"})
	assert.NotEmpty(t, c.ID)
	assert.Empty(t, s.Classes.GetAll())
	assert.Equal(t, int64(1), s.PersistenceFailures())

	backend.failSave = false
	backend.failLoad = true
	assert.Empty(t, s.Classes.GetAll())
	assert.False(t, s.Classes.Update(c.ID, Patch{"name": "B"}))
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestStore(t)
	src.Classes.Add(&models.Class{Name: "Grade 1 Class 1", Grade: "1"})
	src.Events.Add(&models.Event{Name: "100m", ScoringType: models.ScoringTimeAsc})
	src.SaveMeetInfo(models.MeetInfo{Name: "Spring Games"})
	src.AddLog(models.OperationLog{Action: "export"})

	snap := src.Export()
	assert.Equal(t, models.FormatTime(fixedNow), snap.ExportTime)
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	dst := newTestStore(t)
	dst.Students.Add(&models.Student{Name: "kept"})
	imported, err := dst.Import(data)
	require.NoError(t, err)
	assert.Contains(t, imported, "classes")
	assert.Contains(t, imported, "meetInfo")

	assert.Len(t, dst.Classes.GetAll(), 1)
	assert.Len(t, dst.Events.GetAll(), 1)
	info, ok := dst.MeetInfo()
	require.True(t, ok)
	assert.Equal(t, "Spring Games", info.Name)
	// students were exported empty, so the import overwrote them
	assert.Empty(t, dst.Students.GetAll())
}

func TestImportLeavesAbsentKeys(t *testing.T) {
	s := newTestStore(t)
	s.Students.Add(&models.Student{Name: "kept"})

	imported, err := s.Import([]byte(`{"classes":[{"id":"c1","name":"A","grade":"1"}],"results":null}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"classes"}, imported)
	assert.Len(t, s.Students.GetAll(), 1)
	assert.Len(t, s.Classes.GetAll(), 1)
}

func TestImportRejectsBadCollection(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Import([]byte(`{"classes":[{"id":"c1"}],"events":"oops"}`))

	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, "events", importErr.Field)
	assert.Empty(t, s.Classes.GetAll())
}

func TestResetAndCounts(t *testing.T) {
	s := newTestStore(t)
	s.Classes.Add(&models.Class{Name: "A"})
	s.Registrations.Add(&models.Registration{Status: models.RegistrationApproved})
	s.Registrations.Add(&models.Registration{Status: models.RegistrationPending})

	counts := s.Counts()
	assert.Equal(t, 1, counts.Classes)
	assert.Equal(t, 1, counts.Registrations)

	s.Reset()
	assert.Equal(t, Counts{}, s.Counts())
}

func TestBoltBackendPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "meet.db")

	backend, err := NewBoltBackend(path)
	require.NoError(t, err)
	s := New(backend)
	ev := s.Events.Add(&models.Event{Name: "Long jump", ScoringType: models.ScoringDistance})
	s.SetCurrentUserID("u-9")
	require.NoError(t, s.Close())

	backend, err = NewBoltBackend(path)
	require.NoError(t, err)
	defer backend.Close()
	s = New(backend)

	got, ok := s.Events.Find(ev.ID)
	require.True(t, ok)
	assert.Equal(t, "Long jump", got.Name)
	assert.Equal(t, "u-9", s.CurrentUserID())

	_, found, err := backend.Load(KeyClasses)
	require.NoError(t, err)
	assert.False(t, found, "untouched collections are never written")

	require.NoError(t, backend.Remove(KeyEvents))
	assert.Empty(t, s.Events.GetAll())
}

func TestNewIDAvoidsTaken(t *testing.T) {
	taken := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		id := NewID(fixedNow, taken)
		_, dup := taken[id]
		require.False(t, dup)
		taken[id] = struct{}{}
	}
}

func TestNullRecordsAreSkippedOnLoad(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Save(KeyClasses, []byte(`[null,{"id":"c1","name":"1-1","grade":"1"},null]`)))

	var buf bytes.Buffer
	l := logger.NewLogger()
	l.SetOutput(&buf)
	s := New(backend, WithLogger(l))

	classes := s.Classes.GetAll()
	require.Len(t, classes, 1)
	assert.Equal(t, "c1", classes[0].ID)

	_, found := s.Classes.Find("missing")
	assert.False(t, found)
	assert.True(t, s.Classes.Update("c1", Patch{"teacher": "Ms. Park"}))
	assert.True(t, s.Classes.Delete("c1"))
	assert.Contains(t, buf.String(), "Skipped 2 null records in meet_classes")
}

func TestImportRejectsNullRecord(t *testing.T) {
	s := newTestStore(t)
	s.Classes.Add(&models.Class{Name: "Existing"})

	_, err := s.Import([]byte(`{"classes":[null],"students":[{"id":"s1"}]}`))

	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, "classes", importErr.Field)
	assert.ErrorIs(t, err, ErrNullRecord)
	require.Len(t, s.Classes.GetAll(), 1)
	assert.Equal(t, "Existing", s.Classes.GetAll()[0].Name)
	assert.Empty(t, s.Students.GetAll())
}

func TestUpdateCheckedReportsBadPatch(t *testing.T) {
	s := newTestStore(t)
	c := s.Classes.Add(&models.Class{Name: "1-1", Grade: "1"})

	found, err := s.Classes.UpdateChecked(c.ID, Patch{"name": 5})
	assert.True(t, found)
	var patchErr *PatchError
	require.ErrorAs(t, err, &patchErr)
	assert.Equal(t, "name", patchErr.Field)

	stored, ok := s.Classes.Find(c.ID)
	require.True(t, ok)
	assert.Equal(t, "1-1", stored.Name)

	found, err = s.Classes.UpdateChecked("missing", Patch{"name": "x"})
	assert.False(t, found)
	assert.NoError(t, err)
	assert.False(t, s.Classes.Update("missing", Patch{"name": "x"}))
}
