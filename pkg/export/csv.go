// Package export writes the tabular CSV downloads: registrations, results,
// class rankings and event statistics. Every file starts with a UTF-8 byte
// order mark so spreadsheet tools detect the encoding.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/timoknapp/sports-meet/pkg/models"
)

const BOM = "\uFEFF"

type Kind string

const (
	KindRegistrations Kind = "registrations"
	KindResults       Kind = "results"
	KindClassScores   Kind = "class-rankings"
	KindEventStats    Kind = "event-stats"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindRegistrations, KindResults, KindClassScores, KindEventStats:
		return k, true
	}
	return "", false
}

// Filename is the suggested download name, e.g. results_2025-04-18.csv.
func Filename(kind Kind, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", kind, now.Format("2006-01-02"))
}

// displayTime renders a stored timestamp in loc; unparsable values pass through.
func displayTime(stamp string, loc *time.Location) string {
	t, err := time.Parse(models.TimeFormat, stamp)
	if err != nil {
		return stamp
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}

func write(w io.Writer, header []string, rows [][]string) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func Registrations(w io.Writer, regs []*models.Registration, loc *time.Location) error {
	rows := make([][]string, 0, len(regs))
	for _, r := range regs {
		rows = append(rows, []string{
			r.StudentName, r.ClassName, r.EventName, string(r.Status), displayTime(r.RegistrationTime, loc),
		})
	}
	return write(w, []string{"Student", "Class", "Event", "Status", "Registered At"}, rows)
}

func Results(w io.Writer, results []*models.Result, loc *time.Location) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.StudentName, r.ClassName, r.EventName, r.Score,
			strconv.Itoa(r.Rank), strconv.Itoa(r.Points),
			r.RecordedBy, displayTime(r.RecordedTime, loc),
		})
	}
	return write(w, []string{"Student", "Class", "Event", "Score", "Rank", "Points", "Recorded By", "Recorded At"}, rows)
}

// ClassScores numbers the rows by position; scores must already be sorted.
func ClassScores(w io.Writer, scores []models.ClassScore) error {
	rows := make([][]string, 0, len(scores))
	for i, s := range scores {
		rows = append(rows, []string{
			strconv.Itoa(i + 1), s.ClassName, strconv.Itoa(s.TotalPoints),
			strconv.Itoa(s.GoldMedals), strconv.Itoa(s.SilverMedals), strconv.Itoa(s.BronzeMedals),
		})
	}
	return write(w, []string{"Rank", "Class", "Total Points", "Gold", "Silver", "Bronze"}, rows)
}

func EventStats(w io.Writer, stats []models.EventStat) error {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.EventName, s.EventCategory, strconv.Itoa(s.TotalParticipants),
			strconv.Itoa(s.CompletedCount), s.ParticipationRate,
		})
	}
	return write(w, []string{"Event", "Category", "Registered", "Completed", "Completion Rate"}, rows)
}
