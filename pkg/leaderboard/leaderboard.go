package leaderboard

import (
	"math"
	"sort"
	"strconv"

	"github.com/timoknapp/sports-meet/pkg/models"
)

// ClassScores sums points and counts medals per class from already ranked
// results. Classes without results still appear with zero totals. The output
// is sorted by total points, highest first; equal totals keep class order.
func ClassScores(classes []*models.Class, results []*models.Result) []models.ClassScore {
	byClass := make(map[string]*models.ClassScore, len(classes))
	scores := make([]models.ClassScore, len(classes))
	for i, c := range classes {
		scores[i] = models.ClassScore{ClassID: c.ID, ClassName: c.Name}
		byClass[c.ID] = &scores[i]
	}

	for _, r := range results {
		score, ok := byClass[r.ClassID]
		if !ok {
			continue
		}
		score.TotalPoints += r.Points
		switch r.Rank {
		case 1:
			score.GoldMedals++
		case 2:
			score.SilverMedals++
		case 3:
			score.BronzeMedals++
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].TotalPoints > scores[j].TotalPoints
	})
	return scores
}

// EventStats reports, per event, approved registrations against recorded
// results.
func EventStats(events []*models.Event, registrations []*models.Registration, results []*models.Result) []models.EventStat {
	approved := make(map[string]int)
	for _, reg := range registrations {
		if reg.Status == models.RegistrationApproved {
			approved[reg.EventID]++
		}
	}
	completed := make(map[string]int)
	for _, r := range results {
		completed[r.EventID]++
	}

	stats := make([]models.EventStat, 0, len(events))
	for _, e := range events {
		rate := CompletionRate(completed[e.ID], approved[e.ID])
		stats = append(stats, models.EventStat{
			EventID:           e.ID,
			EventName:         e.Name,
			EventCategory:     e.Category,
			TotalParticipants: approved[e.ID],
			CompletedCount:    completed[e.ID],
			CompletionRate:    rate,
			ParticipationRate: FormatRate(rate, approved[e.ID]),
		})
	}
	return stats
}

// CompletionRate is completed/registered*100 rounded to one decimal, 0 when
// nobody is registered.
func CompletionRate(completed, registered int) float64 {
	if registered <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(registered)*1000) / 10
}

// FormatRate renders the rate as shown in the statistics table: one decimal
// and a percent sign, or a bare "0%" when there are no registrations.
func FormatRate(rate float64, registered int) string {
	if registered <= 0 {
		return "0%"
	}
	return strconv.FormatFloat(rate, 'f', 1, 64) + "%"
}
