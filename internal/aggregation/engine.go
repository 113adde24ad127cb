package aggregation

import (
	"context"
	"fmt"
	"time"

	"github.com/liamashdown/linetracker/internal/metrics"
	"github.com/liamashdown/linetracker/internal/storage"
	"github.com/sirupsen/logrus"
)

// FactReader is read-only access to the fact table.
type FactReader interface {
	EventHeaders(ctx context.Context) ([]storage.EventHeader, error)
	Facts(ctx context.Context, filter storage.FactFilter) ([]storage.OddsFact, error)
}

// Query selects one event and market across a set of sportsbooks.
type Query struct {
	EventID     string
	Sportsbooks []string
	Market      string
}

// Engine derives the line-movement and game-summary views on demand. It
// holds no state of its own, so its output always matches the fact table.
type Engine struct {
	reader      FactReader
	seasonStart time.Time
	log         *logrus.Logger
}

// NewEngine creates an aggregation engine
func NewEngine(reader FactReader, seasonStart time.Time, log *logrus.Logger) *Engine {
	return &Engine{reader: reader, seasonStart: seasonStart, log: log}
}

// Games returns every event in the fact table, latest kickoff first
func (e *Engine) Games(ctx context.Context) ([]Game, error) {
	start := time.Now()
	headers, err := e.reader.EventHeaders(ctx)
	metrics.RecordQuery("games", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query event headers: %w", err)
	}
	return Games(headers, e.seasonStart), nil
}

// LineMovements returns the quotes for q ordered by captured_at
func (e *Engine) LineMovements(ctx context.Context, q Query) ([]LineMovement, error) {
	start := time.Now()
	facts, err := e.facts(ctx, q)
	metrics.RecordQuery("movements", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return LineMovements(facts), nil
}

// GameSummary returns the opening/closing rollups for q ordered by
// sportsbook and outcome
func (e *Engine) GameSummary(ctx context.Context, q Query) ([]GameSummary, error) {
	start := time.Now()
	facts, err := e.facts(ctx, q)
	metrics.RecordQuery("summary", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	summaries := GameSummaries(LineMovements(facts))
	e.log.WithFields(logrus.Fields{
		"event_id": q.EventID,
		"market":   q.Market,
		"rows":     len(facts),
		"groups":   len(summaries),
	}).Debug("Game summary computed")

	return summaries, nil
}

func (e *Engine) facts(ctx context.Context, q Query) ([]storage.OddsFact, error) {
	facts, err := e.reader.Facts(ctx, storage.FactFilter{
		EventID:    q.EventID,
		Bookmakers: q.Sportsbooks,
		MarketKey:  q.Market,
	})
	if err != nil {
		return nil, fmt.Errorf("query facts for %s/%s: %w", q.EventID, q.Market, err)
	}
	return facts, nil
}
