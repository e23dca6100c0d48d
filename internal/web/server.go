// Package web serves the prediction form and a small JSON API.
//
// Every request reads the current stats snapshot exactly once, so a reload that
// lands mid-request cannot mix old and new data.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/rewired-gh/cricketoracle/internal/logger"
	"github.com/rewired-gh/cricketoracle/internal/models"
	"github.com/rewired-gh/cricketoracle/internal/predictor"
	"github.com/rewired-gh/cricketoracle/internal/stats"
	"github.com/rewired-gh/cricketoracle/internal/storage"
)

//go:embed templates/index.html
var templateFS embed.FS

// Notifier receives reload and prediction events.
type Notifier interface {
	NotifyReload(snap *stats.Snapshot) error
	NotifyReloadFailure(err error) error
	NotifyPrediction(p *models.PredictionResult) error
}

// Options configures optional collaborators. Nil fields disable the feature.
type Options struct {
	History           *storage.History
	HistoryLimit      int
	Notifier          Notifier
	NotifyPredictions bool
}

// Server holds the handlers' dependencies.
type Server struct {
	state  *storage.State
	opts   Options
	tmpl   *template.Template
	router *mux.Router
}

// NewServer wires the routes.
func NewServer(state *storage.State, opts Options) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}

	s := &Server{state: state, opts: opts, tmpl: tmpl, router: mux.NewRouter()}
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/", s.handlePredict).Methods(http.MethodPost)
	s.router.HandleFunc("/reload-data", s.handleReload).Methods(http.MethodPost)
	s.router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Use(logRequests)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type pageData struct {
	Team1       string
	Team2       string
	Error       string
	ReloadError string
	Prediction  *models.PredictionResult
	Chart       *models.ChartData
	TeamList    []string
	Rows        []models.TeamStatsRow
	LoadedAgo   string
	Matches     int
}

const reloadFailedMessage = "Could not reload the data. The previous statistics are still in use."

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{}
	if r.URL.Query().Get("reload") == "failed" {
		data.ReloadError = reloadFailedMessage
	}
	status := s.withSnapshot(&data)
	s.render(w, data, status)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, pageData{Error: "Invalid form submission."}, http.StatusBadRequest)
		return
	}

	data := pageData{
		Team1: strings.TrimSpace(r.PostForm.Get("team1")),
		Team2: strings.TrimSpace(r.PostForm.Get("team2")),
	}
	snap, err := s.state.Current()
	if err != nil {
		data.Error = "Team statistics are not available. Try reloading the data."
		s.render(w, data, http.StatusServiceUnavailable)
		return
	}
	fillSnapshot(&data, snap)

	res, err := predictor.Predict(snap, data.Team1, data.Team2, predictor.Options{RejectDuplicates: true})
	var notFound *predictor.TeamNotFoundError
	switch {
	case errors.As(err, &notFound):
		data.Error = "Could not find data for one or both teams. Please check the names."
		s.render(w, data, http.StatusOK)
		return
	case errors.Is(err, predictor.ErrDuplicateTeam):
		data.Error = "Please select two different teams."
		s.render(w, data, http.StatusOK)
		return
	case err != nil:
		logger.Error("Prediction failed: %v", err)
		data.Error = "Prediction failed."
		s.render(w, data, http.StatusInternalServerError)
		return
	}

	logger.Info("Predicted %s vs %s: %.2f/%.2f", res.Team1, res.Team2, res.Team1Chance, res.Team2Chance)
	data.Prediction = res
	chart := res.Chart()
	data.Chart = &chart
	s.record(res)
	s.render(w, data, http.StatusOK)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	target := "/"
	snap, err := s.state.Reload(r.Context())
	if err != nil {
		logger.Warn("Reload of %s failed, keeping previous data: %v", s.state.Source(), err)
		target = "/?reload=failed"
		s.notify(func(n Notifier) error { return n.NotifyReloadFailure(err) })
	} else {
		s.notify(func(n Notifier) error { return n.NotifyReload(snap) })
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type statsResponse struct {
	SnapshotID string                `json:"snapshot_id"`
	Source     string                `json:"source"`
	LoadedAt   time.Time             `json:"loaded_at"`
	Matches    int                   `json:"matches"`
	Anomalies  int                   `json:"anomalies"`
	Teams      []models.TeamStatsRow `json:"teams"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.state.Current()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		SnapshotID: snap.ID,
		Source:     snap.Source,
		LoadedAt:   snap.LoadedAt,
		Matches:    snap.Matches,
		Anomalies:  snap.Anomalies,
		Teams:      snap.Rows(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "prediction history is disabled"})
		return
	}
	recent, err := s.opts.History.Recent(r.Context(), s.opts.HistoryLimit)
	if err != nil {
		logger.Error("Failed to read prediction history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read history"})
		return
	}
	if recent == nil {
		recent = []models.PredictionResult{}
	}
	writeJSON(w, http.StatusOK, recent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.state.Current(); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ok\n"))
}

// withSnapshot fills the team data and returns the status to render with.
func (s *Server) withSnapshot(data *pageData) int {
	snap, err := s.state.Current()
	if err != nil {
		data.Error = "Team statistics are not available. Try reloading the data."
		return http.StatusServiceUnavailable
	}
	fillSnapshot(data, snap)
	return http.StatusOK
}

func fillSnapshot(data *pageData, snap *stats.Snapshot) {
	data.TeamList = snap.Teams()
	data.Rows = snap.Rows()
	data.LoadedAgo = humanize.Time(snap.LoadedAt)
	data.Matches = snap.Matches
}

func (s *Server) render(w http.ResponseWriter, data pageData, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.Execute(w, data); err != nil {
		logger.Error("Failed to render page: %v", err)
	}
}

func (s *Server) record(res *models.PredictionResult) {
	if s.opts.History != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.opts.History.Record(ctx, res); err != nil {
			logger.Warn("Failed to record prediction %s: %v", res.ID, err)
		} else if _, err := s.opts.History.Rotate(ctx); err != nil {
			logger.Warn("Failed to rotate prediction history: %v", err)
		}
	}
	if s.opts.NotifyPredictions {
		s.notify(func(n Notifier) error { return n.NotifyPrediction(res) })
	}
}

// notify delivers in the background so Telegram retries never block a request.
func (s *Server) notify(send func(Notifier) error) {
	if s.opts.Notifier == nil {
		return
	}
	go func() {
		if err := send(s.opts.Notifier); err != nil {
			logger.Warn("Failed to send Telegram notification: %v", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("%s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}
