// Package stats aggregates match records into per-team statistics.
//
// A Snapshot is the immutable result of one aggregation: the stats table, a
// lowercase name index for case-insensitive lookups and the sorted team list.
// Snapshots are never modified after NewSnapshot returns, so they can be shared
// freely between concurrent readers and replaced wholesale on reload.
package stats

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/cricketoracle/internal/models"
)

// Aggregate computes played, won and win percentage for every team that appears
// on either side of any record. Empty sides are not teams. Winner is compared by
// exact string equality and is not checked against the two sides of its row.
func Aggregate(records []models.MatchRecord) models.StatsTable {
	played := make(map[string]int)
	won := make(map[string]int)

	for _, r := range records {
		if r.Team1 != "" {
			played[r.Team1]++
		}
		if r.Team2 != "" && r.Team2 != r.Team1 {
			played[r.Team2]++
		}
		if r.HasResult() {
			won[r.Winner]++
		}
	}

	table := make(models.StatsTable, len(played))
	for team, p := range played {
		table[team] = models.NewTeamStats(p, won[team])
	}
	return table
}

// Snapshot is one immutable generation of team statistics.
type Snapshot struct {
	ID        string
	LoadedAt  time.Time
	Source    string
	Matches   int
	Anomalies int // rows missing a side or whose winner is neither side

	table models.StatsTable
	index map[string]string // lowercase name -> canonical name
	teams []string
}

// NewSnapshot aggregates records into a new snapshot.
func NewSnapshot(source string, records []models.MatchRecord) *Snapshot {
	table := Aggregate(records)

	anomalies := 0
	for i := range records {
		if records[i].Validate() != nil || !records[i].WinnerPlayed() {
			anomalies++
		}
	}

	index := make(map[string]string, len(table))
	teams := table.Teams()
	for _, name := range teams {
		// Sorted order makes the winner of a case collision deterministic.
		key := strings.ToLower(name)
		if _, taken := index[key]; !taken {
			index[key] = name
		}
	}

	return &Snapshot{
		ID:        uuid.New().String(),
		LoadedAt:  time.Now(),
		Source:    source,
		Matches:   len(records),
		Anomalies: anomalies,
		table:     table,
		index:     index,
		teams:     teams,
	}
}

// Lookup resolves a team name case-insensitively after trimming surrounding
// whitespace, returning the canonical name as it appears in the dataset.
func (s *Snapshot) Lookup(name string) (string, bool) {
	canonical, ok := s.index[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// Stats returns the stats for a canonical team name.
func (s *Snapshot) Stats(team string) (models.TeamStats, bool) {
	st, ok := s.table[team]
	return st, ok
}

// Teams returns a copy of the sorted team names.
func (s *Snapshot) Teams() []string {
	out := make([]string, len(s.teams))
	copy(out, s.teams)
	return out
}

// Rows returns the stats table sorted by team name.
func (s *Snapshot) Rows() []models.TeamStatsRow {
	return s.table.Rows()
}

// Table returns a copy of the stats table.
func (s *Snapshot) Table() models.StatsTable {
	out := make(models.StatsTable, len(s.table))
	for k, v := range s.table {
		out[k] = v
	}
	return out
}

// Len returns the number of teams.
func (s *Snapshot) Len() int {
	return len(s.table)
}
