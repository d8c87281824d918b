package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timoknapp/sports-meet/pkg/models"
)

func readBack(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	s := buf.String()
	require.True(t, strings.HasPrefix(s, BOM), "missing byte order mark")
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(s, BOM))).ReadAll()
	require.NoError(t, err)
	return records
}

func TestResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := Results(&buf, []*models.Result{{
		StudentName: "Li Lei", ClassName: "Grade 1, Class 2", EventName: "100m",
		Score: "12.8", Rank: 1, Points: 10, RecordedBy: "admin",
		RecordedTime: "2025-04-18T01:02:03.000Z",
	}}, time.UTC)
	require.NoError(t, err)

	records := readBack(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "Recorded At", records[0][7])
	assert.Equal(t, []string{"Li Lei", "Grade 1, Class 2", "100m", "12.8", "1", "10", "admin", "2025-04-18 01:02:03"}, records[1])
}

func TestRegistrationsCSVKeepsUnparsableTimes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Registrations(&buf, []*models.Registration{{
		StudentName: "Han Meimei", ClassName: "1-1", EventName: "Long jump",
		Status: models.RegistrationPending, RegistrationTime: "yesterday",
	}}, time.UTC))

	records := readBack(t, &buf)
	assert.Equal(t, []string{"Han Meimei", "1-1", "Long jump", "pending", "yesterday"}, records[1])
}

func TestClassScoresAndEventStatsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ClassScores(&buf, []models.ClassScore{
		{ClassName: "1-2", TotalPoints: 18, GoldMedals: 1, SilverMedals: 1},
		{ClassName: "1-1", TotalPoints: 6, BronzeMedals: 1},
	}))
	records := readBack(t, &buf)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"2", "1-1", "6", "0", "0", "1"}, records[2])

	buf.Reset()
	require.NoError(t, EventStats(&buf, []models.EventStat{
		{EventName: "100m", EventCategory: "track", TotalParticipants: 3, CompletedCount: 2, ParticipationRate: "66.7%"},
	}))
	records = readBack(t, &buf)
	assert.Equal(t, []string{"100m", "track", "3", "2", "66.7%"}, records[1])
}

func TestParseKindAndFilename(t *testing.T) {
	k, ok := ParseKind("class-rankings")
	require.True(t, ok)
	assert.Equal(t, "class-rankings_2025-04-18.csv", Filename(k, time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC)))
	_, ok = ParseKind("users")
	assert.False(t, ok)
}
