package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentCountsRequests(t *testing.T) {
	Init()
	Init()

	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	before := snapshot(t)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	after := snapshot(t)
	assert.Equal(t, before.TotalRequests+2, after.TotalRequests)
	assert.Equal(t, before.TotalErrors+1, after.TotalErrors)
	assert.GreaterOrEqual(t, after.RequestsByMethodAndStatus["GET"]["404"], int64(1))
}

func TestDomainCounters(t *testing.T) {
	before := Domain()
	ResultRecorded()
	RankingRecomputed(3)
	CertificatesGenerated(5)
	TrackPersistenceFailures(func() int64 { return 7 })
	defer TrackPersistenceFailures(nil)

	after := Domain()
	assert.Equal(t, before.ResultsRecorded+1, after.ResultsRecorded)
	assert.Equal(t, before.RankingRuns+1, after.RankingRuns)
	assert.Equal(t, before.RanksChanged+3, after.RanksChanged)
	assert.Equal(t, before.CertificatesGenerated+5, after.CertificatesGenerated)
	assert.Equal(t, int64(7), after.PersistenceFailures)
}

func TestBucketLabel(t *testing.T) {
	assert.Equal(t, "le_10ms", bucketLabel(5*time.Millisecond))
	assert.Equal(t, "le_250ms", bucketLabel(200*time.Millisecond))
	assert.Equal(t, "gt_5000ms", bucketLabel(6*time.Second))
}

func TestAdvanceShiftsRing(t *testing.T) {
	s := newState()
	start := time.Date(2025, 4, 18, 9, 0, 0, 0, time.UTC)
	s.advanceLocked(start)
	s.perMinute[0] = 4
	s.advanceLocked(start.Add(2 * time.Minute))
	assert.Equal(t, int64(0), s.perMinute[0])
	assert.Equal(t, int64(4), s.perMinute[2])

	s.advanceLocked(start.Add(30 * time.Minute))
	assert.Equal(t, [10]int64{}, s.perMinute)
}

func TestEnvHandler(t *testing.T) {
	t.Setenv("MEET_BACKUP_KEEP", "7")
	t.Setenv("MEET_JWT_SECRET", "hunter2")

	rec := httptest.NewRecorder()
	EnvHandler(rec, httptest.NewRequest(http.MethodGet, EnvPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		EnvVars map[string]string `json:"env_vars"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "7", got.EnvVars["MEET_BACKUP_KEEP"])
	assert.Equal(t, "********", got.EnvVars["MEET_JWT_SECRET"])

	reloaded := false
	SetReloadCallback(func() error { reloaded = true; return nil })
	defer SetReloadCallback(nil)

	rec = httptest.NewRecorder()
	EnvHandler(rec, httptest.NewRequest(http.MethodPost, EnvPath, strings.NewReader(`{"MEET_BACKUP_KEEP":"3","PATH":"/tmp"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reloaded)
	assert.Contains(t, rec.Body.String(), "Only MEET_* prefixed")

	SetReloadCallback(func() error { return errors.New("boom") })
	rec = httptest.NewRecorder()
	EnvHandler(rec, httptest.NewRequest(http.MethodPost, EnvPath, strings.NewReader(`{"MEET_BACKUP_KEEP":"4"}`)))
	assert.Contains(t, rec.Body.String(), "reload failed")
}

func snapshot(t *testing.T) stats {
	t.Helper()
	rec := httptest.NewRecorder()
	StatsHandler(rec, httptest.NewRequest(http.MethodGet, StatsPath, nil))
	var s stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	return s
}
