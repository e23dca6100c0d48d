package models

import (
	"errors"
	"sort"
)

// TeamStats holds a team's historical record.
type TeamStats struct {
	Played int     `json:"played"`
	Won    int     `json:"won"`
	WinPct float64 `json:"win_pct"` // 0–100
}

// NewTeamStats derives WinPct from the counts. A team with no matches has 0%.
func NewTeamStats(played, won int) TeamStats {
	s := TeamStats{Played: played, Won: won}
	if played > 0 {
		s.WinPct = float64(won) / float64(played) * 100
	}
	return s
}

// Validate checks the counts and the percentage range.
// Won may exceed Played when the dataset names a winner that did not play.
func (s *TeamStats) Validate() error {
	if s.Played < 0 {
		return errors.New("played must not be negative")
	}
	if s.Won < 0 {
		return errors.New("won must not be negative")
	}
	if s.WinPct < 0 || s.WinPct > 100 {
		return errors.New("win percentage must be between 0 and 100")
	}
	return nil
}

// StatsTable maps the exact team name from the dataset to its stats.
type StatsTable map[string]TeamStats

// TeamStatsRow is one named entry of a StatsTable, used for sorted presentation.
type TeamStatsRow struct {
	Team string `json:"team"`
	TeamStats
}

// Teams returns the team names sorted ascending.
func (t StatsTable) Teams() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rows returns the table as rows sorted by team name.
func (t StatsTable) Rows() []TeamStatsRow {
	rows := make([]TeamStatsRow, 0, len(t))
	for _, name := range t.Teams() {
		rows = append(rows, TeamStatsRow{Team: name, TeamStats: t[name]})
	}
	return rows
}
