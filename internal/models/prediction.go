package models

import (
	"errors"
	"math"
	"time"
)

// ChartData pairs team labels with their normalized chances, in selection order.
type ChartData struct {
	Labels      []string  `json:"labels"`
	Percentages []float64 `json:"percentages"`
}

// PredictionResult is the outcome of comparing two teams.
// Team1Pct and Team2Pct are the raw win percentages; the chances are normalized
// so that they sum to 100.
type PredictionResult struct {
	ID          string    `json:"id"`
	Team1       string    `json:"team1"`
	Team2       string    `json:"team2"`
	Team1Pct    float64   `json:"team1_pct"`
	Team2Pct    float64   `json:"team2_pct"`
	Team1Chance float64   `json:"team1_chance"`
	Team2Chance float64   `json:"team2_chance"`
	Verdict     string    `json:"verdict"`
	SnapshotID  string    `json:"snapshot_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Chart returns the chart payload for the result.
func (p *PredictionResult) Chart() ChartData {
	return ChartData{
		Labels:      []string{p.Team1, p.Team2},
		Percentages: []float64{p.Team1Chance, p.Team2Chance},
	}
}

// Favourite returns the team with the higher chance, or "" when they are equal.
func (p *PredictionResult) Favourite() string {
	switch {
	case p.Team1Chance > p.Team2Chance:
		return p.Team1
	case p.Team2Chance > p.Team1Chance:
		return p.Team2
	default:
		return ""
	}
}

// Validate checks that all prediction fields are valid
func (p *PredictionResult) Validate() error {
	if p.ID == "" {
		return errors.New("prediction ID must not be empty")
	}
	if p.Team1 == "" || p.Team2 == "" {
		return errors.New("both team names must be set")
	}
	if p.Team1Chance < 0 || p.Team1Chance > 100 || p.Team2Chance < 0 || p.Team2Chance > 100 {
		return errors.New("chances must be between 0 and 100")
	}
	// Rounding to two decimals can leave the sum a hundredth off.
	if math.Abs(p.Team1Chance+p.Team2Chance-100) > 0.011 {
		return errors.New("chances should sum to 100")
	}
	if p.Verdict == "" {
		return errors.New("verdict must not be empty")
	}
	if p.CreatedAt.After(time.Now()) {
		return errors.New("created at must not be in the future")
	}
	return nil
}
