// Package models defines the core domain entities for the cricket oracle.
// These models represent historical match results, per-team aggregates and
// head-to-head predictions.
//
// Terminology:
//   - Team: a franchise name exactly as it appears in the dataset.
//   - Played: matches a team appears in on either side.
//   - Win percentage: won / played × 100, or 0 when nothing was played.
package models

import "errors"

// MatchRecord is one row of the results dataset. Only the two sides and the
// winner are used; Winner is empty for abandoned or no-result matches.
type MatchRecord struct {
	Team1  string `json:"team1"`
	Team2  string `json:"team2"`
	Winner string `json:"winner,omitempty"`
}

// Validate checks that both sides are present.
func (m *MatchRecord) Validate() error {
	if m.Team1 == "" {
		return errors.New("team1 must not be empty")
	}
	if m.Team2 == "" {
		return errors.New("team2 must not be empty")
	}
	return nil
}

// HasResult reports whether the match produced a winner.
func (m *MatchRecord) HasResult() bool {
	return m.Winner != ""
}

// WinnerPlayed reports whether the recorded winner is one of the two sides.
// A match without a result counts as consistent.
func (m *MatchRecord) WinnerPlayed() bool {
	return !m.HasResult() || m.Winner == m.Team1 || m.Winner == m.Team2
}
