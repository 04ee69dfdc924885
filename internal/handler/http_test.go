package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tetris-scores/internal/config"
	"github.com/tetris-scores/internal/domain"
	"github.com/tetris-scores/internal/service"
	"github.com/tetris-scores/internal/websocket"
)

type stubStore struct {
	history  []domain.ScoreRecord
	inserted []domain.ScoreRecord
	top      []domain.LeaderboardEntry
}

func (s *stubStore) InsertScore(_ context.Context, rec *domain.ScoreRecord) (int64, error) {
	s.inserted = append(s.inserted, *rec)
	return 42, nil
}

func (s *stubStore) RecentScoresByName(_ context.Context, _ string, _ int) ([]domain.ScoreRecord, error) {
	return s.history, nil
}

func (s *stubStore) TopScores(_ context.Context, _ int) ([]domain.LeaderboardEntry, error) {
	return s.top, nil
}

func (s *stubStore) GetScore(_ context.Context, id int64) (*domain.ScoreRecord, error) {
	for i := range s.history {
		if s.history[i].ID == id {
			return &s.history[i], nil
		}
	}
	return nil, domain.ErrScoreNotFound
}

func (s *stubStore) DeleteScore(_ context.Context, _ int64) error {
	return nil
}

func (s *stubStore) CountScores(_ context.Context) (int64, error) {
	return int64(len(s.inserted) + len(s.history)), nil
}

type stubBoard struct {
	top []domain.LeaderboardEntry
}

func (s *stubBoard) RecordIfBetter(_ context.Context, _ string, _ float64) (bool, error) {
	return true, nil
}

func (s *stubBoard) TopN(_ context.Context, _ int) ([]domain.LeaderboardEntry, error) {
	return s.top, nil
}

func (s *stubBoard) PlayerBest(_ context.Context, name string) (*domain.LeaderboardEntry, error) {
	for _, entry := range s.top {
		if entry.Name == name {
			return &entry, nil
		}
	}
	return nil, domain.ErrPlayerNotFound
}

func (s *stubBoard) Count(_ context.Context) (int64, error) {
	return int64(len(s.top)), nil
}

func (s *stubBoard) RemovePlayer(_ context.Context, _ string) error {
	return nil
}

func newTestHandler(t *testing.T, mode config.Mode, store *stubStore) *Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewScoreService(
		store,
		&stubBoard{top: store.top},
		&config.AnticheatConfig{
			Mode:             mode,
			TolerancePercent: 30,
			SeedTTL:          5 * time.Minute,
			HistoryLimit:     10,
		},
		&config.LeaderboardConfig{DefaultLimit: 100, MaxLimit: 1000},
		logger,
	)
	return NewHandler(svc, websocket.NewHub(logger), logger)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tetris-test/1.0")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestIssueSeed(t *testing.T) {
	h := newTestHandler(t, config.ModeProduction, &stubStore{})

	rr := doJSON(t, h.Router(), http.MethodGet, "/api/v1/seed", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var seed domain.GameSeed
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &seed))
	require.Len(t, seed.Seed, 16)
	require.Greater(t, seed.ExpiresAt, seed.Timestamp)
}

func TestValidateScore_DryRun(t *testing.T) {
	store := &stubStore{}
	h := newTestHandler(t, config.ModeProduction, store)

	rr := doJSON(t, h.Router(), http.MethodPost, "/api/v1/scores/validate", map[string]interface{}{
		"name": "", "points": 1000, "level": 5, "lines": 20,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var res domain.ValidationResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.False(t, res.IsValid)
	require.Equal(t, "Invalid name", res.Reason)
	require.Empty(t, store.inserted, "dry-run must not persist")
}

func TestSubmitScore_Accepted(t *testing.T) {
	store := &stubStore{}
	h := newTestHandler(t, config.ModeProduction, store)

	rr := doJSON(t, h.Router(), http.MethodPost, "/api/v1/scores", map[string]interface{}{
		"name": "tester", "points": 800, "level": 3, "lines": 22,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var res struct {
		OK            bool    `json:"ok"`
		ID            int64   `json:"id"`
		Message       string  `json:"message"`
		ExpectedScore float64 `json:"expectedScore"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.True(t, res.OK)
	require.Equal(t, int64(42), res.ID)
	require.NotEmpty(t, res.Message)
	require.Equal(t, 900.0, res.ExpectedScore)

	require.Len(t, store.inserted, 1)
	require.Equal(t, "tetris-test/1.0", store.inserted[0].UserAgent)
	require.Len(t, store.inserted[0].ScoreHash, 64)
}

func TestSubmitScore_ValidationRejected(t *testing.T) {
	store := &stubStore{}
	h := newTestHandler(t, config.ModeProduction, store)

	rr := doJSON(t, h.Router(), http.MethodPost, "/api/v1/scores", map[string]interface{}{
		"name": "tester", "points": 999999, "level": 1, "lines": 5,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var res struct {
		Error         string   `json:"error"`
		Reason        string   `json:"reason"`
		ExpectedScore *float64 `json:"expectedScore"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.NotEmpty(t, res.Error)
	require.Contains(t, res.Reason, "Score too high")
	require.NotNil(t, res.ExpectedScore)
	require.Empty(t, store.inserted)
}

func TestSubmitScore_PatternRejected(t *testing.T) {
	now := time.Now()
	store := &stubStore{
		history: []domain.ScoreRecord{
			{Name: "tester", Points: 500, CreatedAt: now.Add(-2 * time.Hour)},
			{Name: "tester", Points: 60000, CreatedAt: now.Add(-1 * time.Hour)},
		},
	}
	h := newTestHandler(t, config.ModeProduction, store)

	rr := doJSON(t, h.Router(), http.MethodPost, "/api/v1/scores", map[string]interface{}{
		"name": "tester", "points": 800, "level": 3, "lines": 22,
	})
	require.Equal(t, http.StatusForbidden, rr.Code)

	var res struct {
		Error   string   `json:"error"`
		Reasons []string `json:"reasons"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.NotEmpty(t, res.Error)
	require.NotEmpty(t, res.Reasons)
	require.Contains(t, res.Reasons[0], "Large score jump")
}

func TestSubmitScore_MalformedBody(t *testing.T) {
	h := newTestHandler(t, config.ModeProduction, &stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetTopScores(t *testing.T) {
	store := &stubStore{top: []domain.LeaderboardEntry{
		{Rank: 1, Name: "ace", Points: 12000},
		{Rank: 2, Name: "bee", Points: 9000},
	}}
	h := newTestHandler(t, config.ModeProduction, store)

	rr := doJSON(t, h.Router(), http.MethodGet, "/api/v1/scores/top?limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		Success bool                      `json:"success"`
		Data    []domain.LeaderboardEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.Len(t, res.Data, 2)
	require.Equal(t, "ace", res.Data[0].Name)
}

func TestGetPlayerScores(t *testing.T) {
	now := time.Now()
	store := &stubStore{history: []domain.ScoreRecord{
		{ID: 2, Name: "tester", Points: 900, CreatedAt: now},
		{ID: 1, Name: "tester", Points: 500, CreatedAt: now.Add(-time.Hour)},
	}}
	h := newTestHandler(t, config.ModeProduction, store)

	rr := doJSON(t, h.Router(), http.MethodGet, "/api/v1/scores/player/tester", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		Success bool                 `json:"success"`
		Data    []domain.ScoreRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.Len(t, res.Data, 2)
	require.Equal(t, int64(2), res.Data[0].ID)
}

func TestGetScore(t *testing.T) {
	store := &stubStore{history: []domain.ScoreRecord{
		{ID: 7, Name: "tester", Points: 900},
	}}
	h := newTestHandler(t, config.ModeProduction, store)

	rr := doJSON(t, h.Router(), http.MethodGet, "/api/v1/scores/7", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		Success bool               `json:"success"`
		Data    domain.ScoreRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, int64(7), res.Data.ID)

	rr = doJSON(t, h.Router(), http.MethodGet, "/api/v1/scores/999", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetPlayerRank(t *testing.T) {
	store := &stubStore{top: []domain.LeaderboardEntry{
		{Rank: 1, Name: "ace", Points: 12000},
	}}
	h := newTestHandler(t, config.ModeProduction, store)

	rr := doJSON(t, h.Router(), http.MethodGet, "/api/v1/scores/player/ace/rank", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		Success bool                    `json:"success"`
		Data    domain.LeaderboardEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, int64(1), res.Data.Rank)
	require.Equal(t, 12000.0, res.Data.Points)

	rr = doJSON(t, h.Router(), http.MethodGet, "/api/v1/scores/player/nobody/rank", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetStats(t *testing.T) {
	store := &stubStore{history: []domain.ScoreRecord{{ID: 1, Name: "tester", Points: 900}}}
	h := newTestHandler(t, config.ModeProduction, store)

	rr := doJSON(t, h.Router(), http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		Success bool             `json:"success"`
		Data    map[string]int64 `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, int64(1), res.Data["total_scores"])
}

func TestDeleteScore_BadID(t *testing.T) {
	h := newTestHandler(t, config.ModeProduction, &stubStore{})

	rr := doJSON(t, h.Router(), http.MethodDelete, "/api/v1/scores/not-a-number", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestHandler(t, config.ModeProduction, &stubStore{})
	router := h.Router()

	for _, path := range []string{"/health", "/ready"} {
		rr := doJSON(t, router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rr.Code, path)
	}
}
