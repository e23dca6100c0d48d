package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/cricketoracle/internal/models"
	"github.com/rewired-gh/cricketoracle/internal/stats"
	"github.com/rewired-gh/cricketoracle/internal/storage"
)

type fakeDataset struct {
	mu      sync.Mutex
	records []models.MatchRecord
	err     error
}

func (f *fakeDataset) set(records []models.MatchRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records, f.err = records, err
}

func (f *fakeDataset) load(ctx context.Context) ([]models.MatchRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records, f.err
}

type fakeNotifier struct {
	events chan string
}

func (f *fakeNotifier) NotifyReload(snap *stats.Snapshot) error {
	f.events <- "reload"
	return nil
}

func (f *fakeNotifier) NotifyReloadFailure(err error) error {
	f.events <- "reload-failure"
	return nil
}

func (f *fakeNotifier) NotifyPrediction(p *models.PredictionResult) error {
	f.events <- "prediction:" + p.Team1 + ":" + p.Team2
	return nil
}

func scenario() []models.MatchRecord {
	return []models.MatchRecord{
		{Team1: "TeamA", Team2: "TeamB", Winner: "TeamA"},
		{Team1: "TeamA", Team2: "TeamB", Winner: "TeamB"},
		{Team1: "TeamA", Team2: "TeamC", Winner: "TeamA"},
	}
}

func newTestServer(t *testing.T, opts Options) (*Server, *fakeDataset, *storage.State) {
	t.Helper()
	ds := &fakeDataset{records: scenario()}
	state := storage.NewState("test.csv", ds.load)
	_, err := state.Reload(context.Background())
	require.NoError(t, err)

	srv, err := NewServer(state, opts)
	require.NoError(t, err)
	return srv, ds, state
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndex_ListsTeams(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	a := strings.Index(body, `<option value="TeamA">`)
	b := strings.Index(body, `<option value="TeamB">`)
	c := strings.Index(body, `<option value="TeamC">`)
	assert.True(t, a >= 0 && a < b && b < c, "teams should be listed in sorted order")
	assert.NotContains(t, body, `id="prediction"`)
	assert.NotContains(t, body, `id="error"`)
}

func TestPredict_Success(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rec := postForm(srv.Handler(), "/", url.Values{"team1": {" teama "}, "team2": {"TEAMC"}})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "TeamA has a higher chance to win (100.00%) vs TeamC (0.00%).")
	assert.Contains(t, body, "TeamA win rate: 66.67%")
	assert.Contains(t, body, "TeamC win rate: 0.00%")
	assert.Contains(t, body, `"labels":["TeamA","TeamC"]`)
	assert.Contains(t, body, `"percentages":[100,0]`)
	// Entered values are echoed back trimmed.
	assert.Contains(t, body, `value="teama"`)
	assert.NotContains(t, body, `value=" teama "`)
}

func TestPredict_Errors(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	tests := []struct {
		name         string
		team1, team2 string
		wantError    string
	}{
		{"unknown team", "TeamA", "Team Z", "Could not find data for one or both teams. Please check the names."},
		{"both unknown", "X", "Y", "Could not find data for one or both teams. Please check the names."},
		{"same team", "TeamB", "teamb", "Please select two different teams."},
		{"empty form", "", "", "Could not find data for one or both teams. Please check the names."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postForm(srv.Handler(), "/", url.Values{"team1": {tt.team1}, "team2": {tt.team2}})
			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, tt.wantError)
			assert.NotContains(t, body, `id="prediction"`)
			// The team list stays available for another try.
			assert.Contains(t, body, `<option value="TeamA">`)
		})
	}
}

func TestReload_PicksUpNewData(t *testing.T) {
	notifier := &fakeNotifier{events: make(chan string, 4)}
	srv, ds, _ := newTestServer(t, Options{Notifier: notifier})

	ds.set([]models.MatchRecord{
		{Team1: "TeamA", Team2: "TeamC", Winner: "TeamC"},
		{Team1: "TeamD", Team2: "TeamC", Winner: "TeamD"},
	}, nil)

	rec := postForm(srv.Handler(), "/reload-data", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, "reload", waitEvent(t, notifier.events))

	rec = postForm(srv.Handler(), "/", url.Values{"team1": {"TeamC"}, "team2": {"TeamA"}})
	assert.Contains(t, rec.Body.String(), "TeamC has a higher chance to win (100.00%) vs TeamA (0.00%).")

	rec = postForm(srv.Handler(), "/", url.Values{"team1": {"TeamB"}, "team2": {"TeamA"}})
	assert.Contains(t, rec.Body.String(), "Could not find data for one or both teams")
}

func TestReload_FailureKeepsData(t *testing.T) {
	notifier := &fakeNotifier{events: make(chan string, 4)}
	srv, ds, state := newTestServer(t, Options{Notifier: notifier})
	before, err := state.Current()
	require.NoError(t, err)

	ds.set(nil, errors.New("file vanished"))
	rec := postForm(srv.Handler(), "/reload-data", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/", loc.Path)
	assert.Equal(t, "failed", loc.Query().Get("reload"))
	assert.NotContains(t, loc.RawQuery, "vanished")
	assert.Equal(t, "reload-failure", waitEvent(t, notifier.events))

	after, err := state.Current()
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)

	index := httptest.NewRecorder()
	srv.Handler().ServeHTTP(index, httptest.NewRequest(http.MethodGet, loc.String(), nil))
	assert.Contains(t, index.Body.String(), reloadFailedMessage)
	assert.Contains(t, index.Body.String(), `<option value="TeamA">`)
}

func TestIndex_IgnoresArbitraryReloadText(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?reload_error=Call+this+number&reload=oops", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "Call this number")
	assert.NotContains(t, body, reloadFailedMessage)
	assert.NotContains(t, body, `id="reload-error"`)
}

func TestReload_RequiresPost(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reload-data", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNotLoaded(t *testing.T) {
	state := storage.NewState("missing.csv", func(ctx context.Context) ([]models.MatchRecord, error) {
		return nil, errors.New("missing")
	})
	srv, err := NewServer(state, Options{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Team statistics are not available")

	rec = postForm(srv.Handler(), "/", url.Values{"team1": {"A"}, "team2": {"B"}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIStats(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Matches)
	require.Len(t, resp.Teams, 3)
	assert.Equal(t, "TeamA", resp.Teams[0].Team)
	assert.Equal(t, 3, resp.Teams[0].Played)
	assert.Equal(t, 2, resp.Teams[0].Won)
	assert.InDelta(t, 66.67, resp.Teams[0].WinPct, 0.01)
}

func TestHistory(t *testing.T) {
	history, err := storage.OpenHistory(filepath.Join(t.TempDir(), "history.db"), 100)
	require.NoError(t, err)
	defer history.Close()

	notifier := &fakeNotifier{events: make(chan string, 4)}
	srv, _, _ := newTestServer(t, Options{History: history, HistoryLimit: 5, Notifier: notifier, NotifyPredictions: true})

	postForm(srv.Handler(), "/", url.Values{"team1": {"TeamA"}, "team2": {"TeamB"}})
	postForm(srv.Handler(), "/", url.Values{"team1": {"TeamA"}, "team2": {"Nobody"}})
	assert.Equal(t, "prediction:TeamA:TeamB", waitEvent(t, notifier.events))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var recent []models.PredictionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recent))
	require.Len(t, recent, 1)
	assert.Equal(t, "TeamA", recent[0].Team1)
	assert.Equal(t, 57.14, recent[0].Team1Chance)
}

func TestHistoryDisabled(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func waitEvent(t *testing.T, events <-chan string) string {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return ""
	}
}
