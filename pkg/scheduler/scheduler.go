// Package scheduler runs the periodic data backup.
package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/timoknapp/sports-meet/pkg/config"
	"github.com/timoknapp/sports-meet/pkg/logger"
	"github.com/timoknapp/sports-meet/pkg/store"
)

const (
	backupPrefix = "meet-"
	backupSuffix = ".json"
	stampLayout  = "20060102-150405"
)

type Config struct {
	Enabled  bool
	CronSpec string // e.g. "0 2 * * *" (server local time)
	Dir      string
	Keep     int // newest backups kept, 0 keeps all
}

type Scheduler struct {
	mu     sync.Mutex
	c      *cron.Cron
	config Config
	store  *store.Store
	log    *logger.Logger
}

func FromEnv() Config {
	return Config{
		Enabled:  config.Bool("MEET_BACKUP_ENABLED"),
		CronSpec: config.FirstNonEmpty(os.Getenv("MEET_BACKUP_CRON"), "0 2 * * *"),
		Dir:      config.FirstNonEmpty(os.Getenv("MEET_BACKUP_DIR"), "data/backups"),
		Keep:     config.Int("MEET_BACKUP_KEEP", 7),
	}
}

func New(cfg Config, s *store.Store) (*Scheduler, error) {
	sch := &Scheduler{
		config: cfg,
		store:  s,
		log:    s.Logger("scheduler"),
	}
	c, err := sch.newCron(cfg)
	if err != nil {
		return nil, err
	}
	sch.c = c
	return sch, nil
}

// newCron builds a cron runner for cfg; standard 5-field spec in server local time.
func (s *Scheduler) newCron(cfg Config) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(cfg.CronSpec, func() {
		s.log.Info("Scheduler tick: running backup job")
		path, err := Backup(s.store, cfg.Dir, cfg.Keep, time.Now())
		if err != nil {
			s.log.Error("Backup failed: %v", err)
			return
		}
		s.log.Info("Backup written to %s", path)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", cfg.CronSpec, err)
	}
	return c, nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.config.Enabled {
		s.log.Info("Backup scheduler disabled")
		return
	}
	s.log.Info("Starting backup scheduler (cron=%s, dir=%s, keep=%d)", s.config.CronSpec, s.config.Dir, s.config.Keep)
	s.c.Start()
}

// Stop halts the scheduler and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.c
	s.mu.Unlock()
	<-c.Stop().Done()
}

// Reload re-reads the environment and restarts the cron runner when the
// configuration changed.
func (s *Scheduler) Reload() error {
	newConfig := FromEnv()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == newConfig {
		s.log.Info("Scheduler configuration unchanged, no restart needed")
		return nil
	}

	c, err := s.newCron(newConfig)
	if err != nil {
		return err
	}
	s.c.Stop()
	s.c = c
	s.config = newConfig
	if newConfig.Enabled {
		s.c.Start()
		s.log.Info("Scheduler restarted (cron=%s, dir=%s, keep=%d)", newConfig.CronSpec, newConfig.Dir, newConfig.Keep)
	} else {
		s.log.Info("Scheduler disabled via configuration reload")
	}
	return nil
}

func (s *Scheduler) GetConfig() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Backup writes the store snapshot to dir as meet-<timestamp>.json and then
// prunes older backups beyond keep. It returns the written path.
func Backup(s *store.Store, dir string, keep int, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}
	data, err := json.MarshalIndent(s.Export(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := filepath.Join(dir, backupPrefix+now.Format(stampLayout)+backupSuffix)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to finalize backup: %w", err)
	}

	if keep > 0 {
		if err := prune(dir, keep); err != nil {
			return path, err
		}
	}
	return path, nil
}

// Backups lists backup files in dir, newest first.
func Backups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, backupSuffix) {
			names = append(names, name)
		}
	}
	// The timestamp layout sorts lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func prune(dir string, keep int) error {
	names, err := Backups(dir)
	if err != nil {
		return err
	}
	for _, name := range names[min(keep, len(names)):] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("failed to prune %s: %w", name, err)
		}
	}
	return nil
}
