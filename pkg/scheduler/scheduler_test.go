package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/store"
)

func TestBackupWritesSnapshotAndPrunes(t *testing.T) {
	s := store.New(store.NewMemoryBackend())
	s.Classes.Add(&models.Class{Name: "1-1", Grade: "1"})
	dir := t.TempDir()
	start := time.Date(2025, 4, 18, 2, 0, 0, 0, time.UTC)

	for day := 0; day < 4; day++ {
		_, err := Backup(s, dir, 2, start.AddDate(0, 0, day))
		require.NoError(t, err)
	}

	names, err := Backups(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"meet-20250421-020000.json", "meet-20250420-020000.json"}, names)

	data, err := os.ReadFile(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	restored := store.New(store.NewMemoryBackend())
	imported, err := restored.Import(data)
	require.NoError(t, err)
	assert.Contains(t, imported, "classes")
	assert.Equal(t, 1, restored.Classes.Count())
}

func TestBackupKeepZeroKeepsAll(t *testing.T) {
	s := store.New(store.NewMemoryBackend())
	dir := t.TempDir()
	start := time.Date(2025, 4, 18, 2, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := Backup(s, dir, 0, start.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	names, err := Backups(dir)
	require.NoError(t, err)
	assert.Len(t, names, 3)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MEET_BACKUP_ENABLED", "true")
	t.Setenv("MEET_BACKUP_CRON", "*/5 * * * *")
	t.Setenv("MEET_BACKUP_DIR", "/tmp/meet")
	t.Setenv("MEET_BACKUP_KEEP", "3")
	assert.Equal(t, Config{Enabled: true, CronSpec: "*/5 * * * *", Dir: "/tmp/meet", Keep: 3}, FromEnv())

	t.Setenv("MEET_BACKUP_ENABLED", "")
	t.Setenv("MEET_BACKUP_CRON", "")
	t.Setenv("MEET_BACKUP_DIR", "")
	t.Setenv("MEET_BACKUP_KEEP", "")
	assert.Equal(t, Config{CronSpec: "0 2 * * *", Dir: "data/backups", Keep: 7}, FromEnv())
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(Config{CronSpec: "every day"}, store.New(store.NewMemoryBackend()))
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	t.Setenv("MEET_BACKUP_ENABLED", "false")
	t.Setenv("MEET_BACKUP_CRON", "0 2 * * *")
	t.Setenv("MEET_BACKUP_DIR", t.TempDir())
	t.Setenv("MEET_BACKUP_KEEP", "7")

	sch, err := New(FromEnv(), store.New(store.NewMemoryBackend()))
	require.NoError(t, err)
	sch.Start()
	defer sch.Stop()

	require.NoError(t, sch.Reload())
	assert.False(t, sch.GetConfig().Enabled)

	t.Setenv("MEET_BACKUP_ENABLED", "1")
	t.Setenv("MEET_BACKUP_CRON", "30 3 * * *")
	require.NoError(t, sch.Reload())
	assert.True(t, sch.GetConfig().Enabled)
	assert.Equal(t, "30 3 * * *", sch.GetConfig().CronSpec)

	t.Setenv("MEET_BACKUP_CRON", "nonsense")
	assert.Error(t, sch.Reload())
	assert.Equal(t, "30 3 * * *", sch.GetConfig().CronSpec)
}
