// Package shell implements the interactive command-line predictor.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rewired-gh/cricketoracle/internal/predictor"
	"github.com/rewired-gh/cricketoracle/internal/stats"
)

// Run prompts for two team names on in and writes the outcome to out.
// An unknown team is not an error: the stats table is printed as a hint instead.
// The shell does not reject choosing the same team twice.
func Run(in io.Reader, out io.Writer, snap *stats.Snapshot) error {
	w := &errWriter{w: out}
	r := bufio.NewReader(in)

	w.printf("\nWelcome to the IPL Winner Predictor!\n")
	w.printf("This tool predicts the winner between two IPL teams based on overall winning percentage from %s recorded matches.\n\n",
		humanize.Comma(int64(snap.Matches)))
	w.printf("Available teams:\n")
	for _, team := range snap.Teams() {
		w.printf("- %s\n", team)
	}
	w.printf("\nType the team names exactly as shown above.\n")

	team1, err := prompt(w, r, "Enter the name of Team 1: ")
	if err != nil {
		return err
	}
	team2, err := prompt(w, r, "Enter the name of Team 2: ")
	if err != nil {
		return err
	}

	res, err := predictor.Predict(snap, team1, team2, predictor.Options{})
	var notFound *predictor.TeamNotFoundError
	switch {
	case errors.As(err, &notFound):
		w.printf("\nError: Could not find data for one or both teams. Please check the spelling and try again.\n\n")
		PrintStats(w, snap)
		w.printf("\nTip: Copy and paste the team names from the list above.\n")
		return w.err
	case err != nil:
		return err
	}

	w.printf("\n%s's winning percentage: %.2f%%\n", res.Team1, res.Team1Pct)
	w.printf("%s's winning percentage: %.2f%%\n", res.Team2, res.Team2Pct)
	w.printf("\nPrediction: %s\n", res.Verdict)
	return w.err
}

// PrintStats writes the stats table sorted by team name.
func PrintStats(out io.Writer, snap *stats.Snapshot) {
	w, ok := out.(*errWriter)
	if !ok {
		w = &errWriter{w: out}
	}
	w.printf("Team Statistics:\n")
	w.printf("%-30s %6s %6s %7s\n", "Team", "Played", "Won", "Win %")
	w.printf("%s\n", strings.Repeat("-", 52))
	for _, row := range snap.Rows() {
		w.printf("%-30s %6d %6d %7.2f\n", row.Team, row.Played, row.Won, row.WinPct)
	}
}

func prompt(w *errWriter, r *bufio.Reader, label string) (string, error) {
	w.printf("%s", label)
	if w.err != nil {
		return "", w.err
	}
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// errWriter remembers the first write error so output code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	var n int
	n, e.err = e.w.Write(p)
	return n, e.err
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
