package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timoknapp/sports-meet/pkg/models"
)

func TestClassScores(t *testing.T) {
	classes := []*models.Class{
		{ID: "c1", Name: "1-1"},
		{ID: "c2", Name: "1-2"},
		{ID: "c3", Name: "1-3"},
		{ID: "c4", Name: "1-4"},
	}
	results := []*models.Result{
		{ClassID: "c2", Rank: 1, Points: 10},
		{ClassID: "c2", Rank: 3, Points: 6},
		{ClassID: "c1", Rank: 2, Points: 8},
		{ClassID: "c3", Rank: 2, Points: 8},
		{ClassID: "c1", Rank: 9, Points: 0},
		{ClassID: "gone", Rank: 1, Points: 10},
	}

	got := ClassScores(classes, results)
	require.Len(t, got, 4)
	assert.Equal(t, models.ClassScore{ClassID: "c2", ClassName: "1-2", TotalPoints: 16, GoldMedals: 1, BronzeMedals: 1}, got[0])
	// c1 and c3 tie on 8 and keep class order
	assert.Equal(t, "c1", got[1].ClassID)
	assert.Equal(t, 1, got[1].SilverMedals)
	assert.Equal(t, "c3", got[2].ClassID)
	assert.Equal(t, models.ClassScore{ClassID: "c4", ClassName: "1-4"}, got[3])
}

func TestClassScoresTotalsMatchSubset(t *testing.T) {
	classes := []*models.Class{{ID: "a"}, {ID: "b"}}
	var results []*models.Result
	want := map[string]int{}
	gold := map[string]int{}
	for i := 0; i < 40; i++ {
		classID := "a"
		if i%3 == 0 {
			classID = "b"
		}
		rank := i%10 + 1
		points := []int{10, 8, 6, 5, 4, 3, 2, 1, 0, 0}[rank-1]
		results = append(results, &models.Result{ClassID: classID, Rank: rank, Points: points})
		want[classID] += points
		if rank == 1 {
			gold[classID]++
		}
	}

	for _, s := range ClassScores(classes, results) {
		assert.Equal(t, want[s.ClassID], s.TotalPoints)
		assert.Equal(t, gold[s.ClassID], s.GoldMedals)
	}
}

func TestEventStats(t *testing.T) {
	events := []*models.Event{
		{ID: "e1", Name: "100m", Category: "sprint"},
		{ID: "e2", Name: "Long jump", Category: "jump"},
		{ID: "e3", Name: "Relay", Category: "relay"},
	}
	regs := []*models.Registration{
		{EventID: "e1", Status: models.RegistrationApproved},
		{EventID: "e1", Status: models.RegistrationApproved},
		{EventID: "e1", Status: models.RegistrationApproved},
		{EventID: "e1", Status: models.RegistrationPending},
		{EventID: "e2", Status: models.RegistrationRejected},
		{EventID: "e3", Status: models.RegistrationApproved},
	}
	results := []*models.Result{
		{EventID: "e1"}, {EventID: "e1"},
		{EventID: "e2"},
		{EventID: "e3"},
	}

	got := EventStats(events, regs, results)
	require.Len(t, got, 3)

	assert.Equal(t, 3, got[0].TotalParticipants)
	assert.Equal(t, 2, got[0].CompletedCount)
	assert.Equal(t, 66.7, got[0].CompletionRate)
	assert.Equal(t, "66.7%", got[0].ParticipationRate)

	assert.Equal(t, 0, got[1].TotalParticipants)
	assert.Equal(t, 1, got[1].CompletedCount)
	assert.Equal(t, 0.0, got[1].CompletionRate)
	assert.Equal(t, "0%", got[1].ParticipationRate)

	assert.Equal(t, 100.0, got[2].CompletionRate)
	assert.Equal(t, "100.0%", got[2].ParticipationRate)
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0.0, CompletionRate(5, 0))
	assert.Equal(t, 33.3, CompletionRate(1, 3))
	assert.Equal(t, 12.5, CompletionRate(1, 8))
}
