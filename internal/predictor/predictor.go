// Package predictor compares two teams' historical win percentages.
//
// The raw percentages are rescaled so the two chances sum to 100 and rounded to
// two decimals:
//
//	chance_i = round(pct_i / (pct_1 + pct_2) × 100, 2)
//
// When neither team has won anything both chances are exactly 50. The verdict is
// decided on the rounded chances.
package predictor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/cricketoracle/internal/models"
	"github.com/rewired-gh/cricketoracle/internal/stats"
)

// ErrDuplicateTeam is returned when both inputs resolve to the same team.
var ErrDuplicateTeam = errors.New("please select two different teams")

// TeamNotFoundError is returned when either input does not name a known team.
type TeamNotFoundError struct {
	Team1 string
	Team2 string
}

func (e *TeamNotFoundError) Error() string {
	return fmt.Sprintf("could not find data for one or both teams (%q, %q)", e.Team1, e.Team2)
}

// Options controls validation that differs between front ends.
type Options struct {
	// RejectDuplicates fails with ErrDuplicateTeam when both names resolve to
	// the same team instead of producing a self-comparison.
	RejectDuplicates bool
}

// Predict resolves both names against snap and computes the normalized chances.
// The inputs are trimmed for lookup; a TeamNotFoundError carries them as given.
func Predict(snap *stats.Snapshot, team1, team2 string, opts Options) (*models.PredictionResult, error) {
	t1, ok1 := snap.Lookup(strings.TrimSpace(team1))
	t2, ok2 := snap.Lookup(strings.TrimSpace(team2))
	if !ok1 || !ok2 {
		return nil, &TeamNotFoundError{Team1: team1, Team2: team2}
	}
	if opts.RejectDuplicates && t1 == t2 {
		return nil, ErrDuplicateTeam
	}

	s1, _ := snap.Stats(t1)
	s2, _ := snap.Stats(t2)
	c1, c2 := Normalize(s1.WinPct, s2.WinPct)

	return &models.PredictionResult{
		ID:          uuid.New().String(),
		Team1:       t1,
		Team2:       t2,
		Team1Pct:    s1.WinPct,
		Team2Pct:    s2.WinPct,
		Team1Chance: c1,
		Team2Chance: c2,
		Verdict:     Verdict(t1, t2, c1, c2),
		SnapshotID:  snap.ID,
		CreatedAt:   time.Now(),
	}, nil
}

// Normalize rescales two win percentages so they sum to 100.
func Normalize(pct1, pct2 float64) (float64, float64) {
	total := pct1 + pct2
	if total <= 0 {
		return 50.0, 50.0
	}
	return round2(pct1 / total * 100), round2(pct2 / total * 100)
}

// Verdict renders the human-readable outcome for two rounded chances.
func Verdict(team1, team2 string, chance1, chance2 float64) string {
	switch {
	case chance1 > chance2:
		return fmt.Sprintf("%s has a higher chance to win (%.2f%%) vs %s (%.2f%%).", team1, chance1, team2, chance2)
	case chance2 > chance1:
		return fmt.Sprintf("%s has a higher chance to win (%.2f%%) vs %s (%.2f%%).", team2, chance2, team1, chance1)
	default:
		return "Both teams have equal chances (50% each)."
	}
}

// round2 rounds to two decimals on the exact binary value, with exact ties
// going to even, so 53.125 becomes 53.12.
func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}
