package metrics

import (
	"encoding/json"
	"expvar"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// Local diagnostics endpoints
	StatsPath     = "/stats"
	DebugVarsPath = "/debug/vars"
	EnvPath       = "/admin/env"

	// EnvPrefix limits which environment variables EnvHandler exposes and accepts.
	EnvPrefix = "MEET_"
)

var (
	reloadMu       sync.Mutex
	reloadCallback func() error
	publishOnce    sync.Once
	st             = newState()
)

// Init publishes expvar variables. Safe to call more than once.
func Init() {
	publishOnce.Do(publish)
}

func publish() {
	// These snapshot on access, so no ticker is needed.
	expvar.Publish("meet_started_at", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.startedAt.Format(time.RFC3339)
	}))
	expvar.Publish("meet_uptime_seconds", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		return int64(time.Since(st.startedAt).Seconds())
	}))
	expvar.Publish("meet_total_requests", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.totalReq
	}))
	expvar.Publish("meet_total_errors", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.totalErr
	}))
	expvar.Publish("meet_active_users_5m", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		st.pruneLocked(time.Now())
		return int64(len(st.active))
	}))
	expvar.Publish("meet_requests_by_method_status", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.methodStatusLocked()
	}))
	expvar.Publish("meet_request_duration_ms_buckets", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		out := make(map[string]map[string]int64, len(st.durationBuckets))
		for m, inner := range st.durationBuckets {
			o2 := make(map[string]int64, len(inner))
			for bucket, c := range inner {
				o2[bucket] = c
			}
			out[m] = o2
		}
		return out
	}))
	expvar.Publish("meet_requests_last_10m", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		out := make([]int64, len(st.perMinute))
		copy(out, st.perMinute[:])
		return out
	}))
	expvar.Publish("meet_domain", expvar.Func(func() any {
		return Domain()
	}))
}

// SetReloadCallback sets the function to call after EnvHandler changed variables.
func SetReloadCallback(callback func() error) {
	reloadMu.Lock()
	reloadCallback = callback
	reloadMu.Unlock()
}

// Domain counters, fed by the meet service.
type DomainStats struct {
	ResultsRecorded       int64 `json:"results_recorded"`
	RankingRuns           int64 `json:"ranking_runs"`
	RanksChanged          int64 `json:"ranks_changed"`
	CertificatesGenerated int64 `json:"certificates_generated"`
	PersistenceFailures   int64 `json:"persistence_failures"`
}

var (
	domainMu      sync.Mutex
	domain        DomainStats
	failuresGauge func() int64
)

func ResultRecorded() {
	domainMu.Lock()
	domain.ResultsRecorded++
	domainMu.Unlock()
}

// RankingRecomputed counts one ranking run that changed n results.
func RankingRecomputed(n int) {
	domainMu.Lock()
	domain.RankingRuns++
	domain.RanksChanged += int64(n)
	domainMu.Unlock()
}

func CertificatesGenerated(n int) {
	domainMu.Lock()
	domain.CertificatesGenerated += int64(n)
	domainMu.Unlock()
}

// TrackPersistenceFailures reports the store's swallowed failure count.
func TrackPersistenceFailures(gauge func() int64) {
	domainMu.Lock()
	failuresGauge = gauge
	domainMu.Unlock()
}

// Domain returns a snapshot of the domain counters.
func Domain() DomainStats {
	domainMu.Lock()
	defer domainMu.Unlock()
	out := domain
	if failuresGauge != nil {
		out.PersistenceFailures = failuresGauge()
	}
	return out
}

// MarkActive records a signed-in user as active. Requests without one are
// keyed by client address instead.
func MarkActive(userID string) {
	if userID == "" {
		return
	}
	now := time.Now()
	st.mu.Lock()
	st.active["uid:"+userID] = now
	st.mu.Unlock()
}

// Instrument wraps an http.Handler to record request count, status codes, latency
// buckets, requests-per-minute, and active clients (5m window).
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 0}
		start := time.Now()
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		st.record(r, sw.status, time.Since(start))
	})
}

// StatsHandler returns a compact JSON snapshot, suitable for quick human inspection.
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	st.mu.Lock()
	st.pruneLocked(now)
	avgLatencyMs := float64(0)
	if st.totalReq > 0 {
		avgLatencyMs = float64(st.totalLatency.Milliseconds()) / float64(st.totalReq)
	}
	rpm := make([]int64, len(st.perMinute))
	copy(rpm, st.perMinute[:])

	s := stats{
		StartedAt:                 st.startedAt.Format(time.RFC3339),
		UptimeSeconds:             int64(now.Sub(st.startedAt).Seconds()),
		TotalRequests:             st.totalReq,
		TotalErrors:               st.totalErr,
		AverageLatencyMs:          avgLatencyMs,
		RequestsPerMinuteLast10m:  rpm,
		ActiveUsers5m:             int64(len(st.active)),
		RequestsByMethodAndStatus: st.methodStatusLocked(),
	}
	st.mu.Unlock()
	s.Meet = Domain()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s)
}

// ===== Internals =====

type stats struct {
	StartedAt                 string                      `json:"started_at"`
	UptimeSeconds             int64                       `json:"uptime_seconds"`
	TotalRequests             int64                       `json:"total_requests"`
	TotalErrors               int64                       `json:"total_errors"`
	AverageLatencyMs          float64                     `json:"avg_latency_ms"`
	RequestsPerMinuteLast10m  []int64                     `json:"requests_last_10m_newest_first"`
	ActiveUsers5m             int64                       `json:"active_users_5m"`
	RequestsByMethodAndStatus map[string]map[string]int64 `json:"requests_by_method_status"`
	Meet                      DomainStats                 `json:"meet"`
}

type metricsState struct {
	mu sync.Mutex

	startedAt time.Time

	totalReq     int64
	totalErr     int64
	totalLatency time.Duration

	// method -> statusCode -> count
	byMethodStatus map[string]map[int]int64
	// method -> bucketLabel -> count
	durationBuckets map[string]map[string]int64

	// Newest minute is perMinute[0], oldest is perMinute[9]
	perMinute  [10]int64
	lastMinute time.Time

	// active key -> last seen time
	active map[string]time.Time
}

func newState() *metricsState {
	return &metricsState{
		startedAt:       time.Now(),
		byMethodStatus:  make(map[string]map[int]int64),
		durationBuckets: make(map[string]map[string]int64),
		active:          make(map[string]time.Time),
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *metricsState) methodStatusLocked() map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(s.byMethodStatus))
	for m, inner := range s.byMethodStatus {
		o2 := make(map[string]int64, len(inner))
		for code, c := range inner {
			o2[strconv.Itoa(code)] = c
		}
		out[m] = o2
	}
	return out
}

func (s *metricsState) record(r *http.Request, statusCode int, d time.Duration) {
	now := time.Now()
	method := r.Method
	if method == "" {
		method = "UNKNOWN"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalReq++
	if statusCode >= 400 {
		s.totalErr++
	}
	s.totalLatency += d

	if _, ok := s.byMethodStatus[method]; !ok {
		s.byMethodStatus[method] = make(map[int]int64)
	}
	s.byMethodStatus[method][statusCode]++

	bucket := bucketLabel(d)
	if _, ok := s.durationBuckets[method]; !ok {
		s.durationBuckets[method] = make(map[string]int64)
	}
	s.durationBuckets[method][bucket]++

	s.advanceLocked(now)
	s.perMinute[0]++

	s.active[clientKey(r)] = now
	s.pruneLocked(now)
}

// advanceLocked shifts the per-minute ring so perMinute[0] is the current minute.
func (s *metricsState) advanceLocked(now time.Time) {
	currMinute := now.Truncate(time.Minute)
	if s.lastMinute.IsZero() {
		s.lastMinute = currMinute
	}
	delta := int(currMinute.Sub(s.lastMinute) / time.Minute)
	if delta <= 0 {
		return
	}
	if delta >= len(s.perMinute) {
		s.perMinute = [10]int64{}
	} else {
		copy(s.perMinute[delta:], s.perMinute[:len(s.perMinute)-delta])
		for i := 0; i < delta; i++ {
			s.perMinute[i] = 0
		}
	}
	s.lastMinute = currMinute
}

func (s *metricsState) pruneLocked(now time.Time) {
	cutoff := now.Add(-5 * time.Minute)
	for k, t := range s.active {
		if t.Before(cutoff) {
			delete(s.active, k)
		}
	}
}

var bucketBounds = []time.Duration{
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	1000 * time.Millisecond,
	2500 * time.Millisecond,
	5000 * time.Millisecond,
}

func bucketLabel(d time.Duration) string {
	for _, b := range bucketBounds {
		if d <= b {
			return "le_" + strconv.FormatInt(b.Milliseconds(), 10) + "ms"
		}
	}
	return "gt_5000ms"
}

func clientKey(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			xff = xff[:idx]
		}
		if xff = strings.TrimSpace(xff); xff != "" {
			return "ip:" + xff
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return "ip:" + host
	}
	return "ip:" + r.RemoteAddr
}

// EnvHandler provides GET/POST access to the MEET_* environment variables.
// Secrets are masked on read.
func EnvHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		handleGetEnv(w, r)
	case http.MethodPost, http.MethodPut:
		handleSetEnv(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func secretName(key string) bool {
	return strings.Contains(key, "SECRET") || strings.Contains(key, "DSN") || strings.Contains(key, "PASSWORD")
}

func handleGetEnv(w http.ResponseWriter, r *http.Request) {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], EnvPrefix) {
			continue
		}
		if secretName(pair[0]) {
			envVars[pair[0]] = "********"
			continue
		}
		envVars[pair[0]] = pair[1]
	}

	response := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"env_vars":  envVars,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func handleSetEnv(w http.ResponseWriter, r *http.Request) {
	var request map[string]string
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON request body", http.StatusBadRequest)
		return
	}

	updated := make(map[string]string)
	errors := make(map[string]string)
	for key, value := range request {
		if !strings.HasPrefix(key, EnvPrefix) {
			errors[key] = "Only " + EnvPrefix + "* prefixed environment variables are allowed"
			continue
		}
		if !isValidEnvVarName(key) {
			errors[key] = "Invalid environment variable name format"
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			errors[key] = "Failed to set environment variable: " + err.Error()
			continue
		}
		updated[key] = value
	}

	reloadMu.Lock()
	callback := reloadCallback
	reloadMu.Unlock()

	message := "Environment variables updated. Some changes take effect only after a restart."
	if len(updated) > 0 && callback != nil {
		if err := callback(); err != nil {
			errors["reload"] = "Component reload failed: " + err.Error()
			message = "Environment variables updated, but component reload failed."
		} else {
			message = "Environment variables updated and components reloaded."
		}
	}

	response := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"updated":   updated,
		"errors":    errors,
		"message":   message,
	}
	w.Header().Set("Content-Type", "application/json")
	statusCode := http.StatusOK
	if len(errors) > 0 && len(updated) == 0 {
		statusCode = http.StatusBadRequest
	}
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func isValidEnvVarName(name string) bool {
	if len(name) == 0 {
		return false
	}
	for _, char := range name {
		if !((char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_') {
			return false
		}
	}
	return true
}
