// Package ranking orders the results of one event by the event's scoring rule
// and derives rank and points for each of them.
//
// Ranks are strictly sequential: equal scores get consecutive ranks in the
// order the results were recorded. Ties are not detected.
package ranking

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/timoknapp/sports-meet/pkg/logger"
	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/store"
)

var ErrEventNotFound = errors.New("event not found")

// pointsTable maps rank 1..8 to points; every other rank scores 0.
var pointsTable = [...]int{10, 8, 6, 5, 4, 3, 2, 1}

// PointsForRank returns the points awarded for a rank.
func PointsForRank(rank int) int {
	if rank < 1 || rank > len(pointsTable) {
		return 0
	}
	return pointsTable[rank-1]
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseScore reads the leading decimal number of a free-text score, so
// "12.5", "12.5s" and " 5.20 m" all parse. Anything else is 0.
func ParseScore(score string) float64 {
	m := leadingNumber.FindString(strings.TrimSpace(score))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// Ascending reports whether smaller scores win under the scoring type.
func Ascending(t models.ScoringType) bool {
	return t == models.ScoringTimeAsc
}

// Assignment is the computed rank and points for one result.
type Assignment struct {
	ResultID string
	Score    float64
	Rank     int
	Points   int
}

// Rank orders results for the event and assigns 1-based sequential ranks.
// The input slice is not modified. Results belonging to other events are
// ignored. Unknown scoring types keep the input order.
func Rank(event models.Event, results []*models.Result) []Assignment {
	type entry struct {
		id    string
		score float64
	}
	entries := make([]entry, 0, len(results))
	for _, r := range results {
		if r.EventID != event.ID {
			continue
		}
		entries = append(entries, entry{id: r.ID, score: ParseScore(r.Score)})
	}

	switch {
	case Ascending(event.ScoringType):
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].score < entries[j].score })
	case event.ScoringType.Valid():
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].score > entries[j].score })
	}

	out := make([]Assignment, len(entries))
	for i, e := range entries {
		rank := i + 1
		out[i] = Assignment{ResultID: e.id, Score: e.score, Rank: rank, Points: PointsForRank(rank)}
	}
	return out
}

// Engine recomputes and persists ranks for an event.
type Engine struct {
	store *store.Store
	log   *logger.Logger
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s, log: s.Logger("ranking")}
}

// Recompute ranks every result of eventID and persists rank and points.
// It returns the number of results written. Unknown events abort with
// ErrEventNotFound without touching any result; an event without results is
// a no-op.
func (e *Engine) Recompute(eventID string) (int, error) {
	event, ok := e.store.Events.Find(eventID)
	if !ok {
		return 0, fmt.Errorf("recompute %s: %w", eventID, ErrEventNotFound)
	}

	results := e.store.ResultsByEvent(eventID)
	if len(results) == 0 {
		e.log.Debug("No results for event %s, nothing to rank", event.Name)
		return 0, nil
	}

	current := make(map[string]*models.Result, len(results))
	for _, r := range results {
		current[r.ID] = r
	}

	written := 0
	for _, a := range Rank(*event, results) {
		if r := current[a.ResultID]; r.Rank == a.Rank && r.Points == a.Points {
			continue
		}
		if e.store.Results.Update(a.ResultID, store.Patch{"rank": a.Rank, "points": a.Points}) {
			written++
		}
	}
	e.log.Info("Ranked %d results for event %s (%s), %d changed", len(results), event.Name, event.ScoringType, written)
	return written, nil
}
