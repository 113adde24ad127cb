package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/liamashdown/linetracker/internal/aggregation"
	"github.com/liamashdown/linetracker/internal/config"
	"github.com/liamashdown/linetracker/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	queryTimeout    = 10 * time.Second
	preferredMarket = "spreads"
)

// DefaultSportsbooks are queried when the request names none.
var DefaultSportsbooks = []string{"pinnacle", "draftkings", "fanduel", "hardrockbet", "betrivers"}

// SportsbookNames maps bookmaker keys to display names.
var SportsbookNames = map[string]string{
	"ballybet":       "Bally Bet",
	"betmgm":         "BetMGM",
	"betrivers":      "BetRivers",
	"draftkings":     "DraftKings",
	"espnbet":        "ESPN BET/theScore",
	"fanatics":       "Fanatics",
	"fanduel":        "FanDuel",
	"fliff":          "Fliff",
	"hardrockbet":    "Hard Rock Bet",
	"pinnacle":       "Pinnacle",
	"williamhill_us": "Caesars",
}

// Querier answers the three read queries over the fact table.
type Querier interface {
	Games(ctx context.Context) ([]aggregation.Game, error)
	LineMovements(ctx context.Context, q aggregation.Query) ([]aggregation.LineMovement, error)
	GameSummary(ctx context.Context, q aggregation.Query) ([]aggregation.GameSummary, error)
}

// Pinger reports whether the warehouse is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Sportsbook is one entry of the sportsbooks listing.
type Sportsbook struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Default     bool   `json:"default"`
}

// Handler serves the read-only query endpoints
type Handler struct {
	cfg     *config.Config
	querier Querier
	db      Pinger
	log     *logrus.Logger
}

// NewHandler creates a new handler with dependencies
func NewHandler(cfg *config.Config, querier Querier, db Pinger, log *logrus.Logger) *Handler {
	return &Handler{cfg: cfg, querier: querier, db: db, log: log}
}

// Health reports process liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	metrics.RecordHealthCheck(true)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// Ready checks the warehouse connection
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		metrics.RecordHealthCheck(false)
		h.respondError(w, http.StatusServiceUnavailable, "database unavailable", err)
		return
	}

	metrics.RecordHealthCheck(true)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// GetGames lists every game in the warehouse, latest first
// GET /api/v1/games
func (h *Handler) GetGames(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	games, err := h.querier.Games(ctx)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve games", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"count": len(games),
	})
}

// GetLineMovements returns the quote time series for one game
// GET /api/v1/games/{eventID}/movements?sportsbooks=a,b&market=spreads
func (h *Handler) GetLineMovements(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	movements, err := h.querier.LineMovements(ctx, q)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve line movements", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"event_id":    q.EventID,
		"market":      q.Market,
		"sportsbooks": q.Sportsbooks,
		"movements":   movements,
		"count":       len(movements),
	})
}

// GetGameSummary returns opening and closing lines for one game
// GET /api/v1/games/{eventID}/summary?sportsbooks=a,b&market=spreads
func (h *Handler) GetGameSummary(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	summaries, err := h.querier.GameSummary(ctx, q)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve game summary", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"event_id":    q.EventID,
		"market":      q.Market,
		"sportsbooks": q.Sportsbooks,
		"summary":     summaries,
		"count":       len(summaries),
	})
}

// GetSportsbooks lists the known sportsbooks and their display names
// GET /api/v1/sportsbooks
func (h *Handler) GetSportsbooks(w http.ResponseWriter, r *http.Request) {
	defaults := make(map[string]bool, len(DefaultSportsbooks))
	for _, key := range DefaultSportsbooks {
		defaults[key] = true
	}

	books := make([]Sportsbook, 0, len(SportsbookNames))
	for key, name := range SportsbookNames {
		books = append(books, Sportsbook{Key: key, DisplayName: name, Default: defaults[key]})
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Key < books[j].Key })

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sportsbooks": books,
		"markets":     h.cfg.Markets,
	})
}

// parseQuery reads the event, market and sportsbook parameters. It writes a
// 400 and returns false when they are invalid.
func (h *Handler) parseQuery(w http.ResponseWriter, r *http.Request) (aggregation.Query, bool) {
	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		h.respondError(w, http.StatusBadRequest, "event_id is required", nil)
		return aggregation.Query{}, false
	}

	market := strings.TrimSpace(r.URL.Query().Get("market"))
	if market == "" {
		market = h.defaultMarket()
	}
	if !h.cfg.HasMarket(market) {
		h.respondError(w, http.StatusBadRequest, "market must be one of "+strings.Join(h.cfg.Markets, ", "), nil)
		return aggregation.Query{}, false
	}

	return aggregation.Query{
		EventID:     eventID,
		Market:      market,
		Sportsbooks: parseSportsbooks(r.URL.Query().Get("sportsbooks")),
	}, true
}

// defaultMarket is spreads when configured, otherwise the first configured
// market.
func (h *Handler) defaultMarket() string {
	if h.cfg.HasMarket(preferredMarket) || len(h.cfg.Markets) == 0 {
		return preferredMarket
	}
	return h.cfg.Markets[0]
}

func parseSportsbooks(raw string) []string {
	var books []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		key := strings.ToLower(strings.TrimSpace(part))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		books = append(books, key)
	}
	if len(books) == 0 {
		return append([]string(nil), DefaultSportsbooks...)
	}
	return books
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		h.log.WithError(err).WithField("status", status).Error(message)
	}

	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
