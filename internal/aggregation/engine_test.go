package aggregation

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/liamashdown/linetracker/internal/storage"
	"github.com/sirupsen/logrus"
)

// memReader filters and orders facts the way the SQL reader does.
type memReader struct {
	facts []storage.OddsFact
	err   error
}

func (m *memReader) EventHeaders(ctx context.Context) ([]storage.EventHeader, error) {
	if m.err != nil {
		return nil, m.err
	}
	seen := make(map[string]int)
	var headers []storage.EventHeader
	for _, f := range m.facts {
		i, ok := seen[f.EventID]
		if !ok {
			seen[f.EventID] = len(headers)
			headers = append(headers, storage.EventHeader{
				EventID: f.EventID, HomeTeam: f.HomeTeam, AwayTeam: f.AwayTeam, CommenceTime: f.CommenceTime,
			})
			continue
		}
		if f.CommenceTime.After(headers[i].CommenceTime) {
			headers[i].CommenceTime = f.CommenceTime
		}
	}
	return headers, nil
}

func (m *memReader) Facts(ctx context.Context, filter storage.FactFilter) ([]storage.OddsFact, error) {
	if m.err != nil {
		return nil, m.err
	}
	books := make(map[string]bool)
	for _, b := range filter.Bookmakers {
		books[b] = true
	}
	var out []storage.OddsFact
	for _, f := range m.facts {
		if f.EventID == filter.EventID && f.MarketKey == filter.MarketKey && books[f.BookmakerKey] {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.Before(out[j].CapturedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func newTestEngine(r FactReader) *Engine {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewEngine(r, time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC), log)
}

func TestEngineGameSummary(t *testing.T) {
	// Two captures twelve hours apart for one draftkings spread.
	reader := &memReader{facts: []storage.OddsFact{
		fact(1, 0, "draftkings", "spreads", "Philadelphia Eagles", -110, pt(-3.5)),
		fact(2, 0, "fanduel", "spreads", "Philadelphia Eagles", -110, pt(-3.5)),
		fact(3, 0, "draftkings", "totals", "Over", -110, pt(47.5)),
		fact(4, 12, "draftkings", "spreads", "Philadelphia Eagles", -105, pt(-3.0)),
	}}
	engine := newTestEngine(reader)

	summaries, err := engine.GameSummary(context.Background(), Query{
		EventID:     "evt1",
		Sportsbooks: []string{"draftkings"},
		Market:      "spreads",
	})
	if err != nil {
		t.Fatalf("GameSummary() error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	s := summaries[0]
	if s.OpeningLine != -3.5 || s.ClosingLine != -3.0 || !approx(s.TotalLineMovement, 0.5) {
		t.Errorf("summary lines = %v -> %v (%v)", s.OpeningLine, s.ClosingLine, s.TotalLineMovement)
	}
	if s.CaptureCount != 2 {
		t.Errorf("CaptureCount = %d, want 2", s.CaptureCount)
	}
	if !s.OpeningAt.Equal(base) || !s.ClosingAt.Equal(base.Add(12*time.Hour)) {
		t.Errorf("opening/closing at = %v/%v", s.OpeningAt, s.ClosingAt)
	}
}

func TestEngineLineMovements(t *testing.T) {
	reader := &memReader{facts: []storage.OddsFact{
		fact(1, 12, "pinnacle", "h2h", "Dallas Cowboys", 160, nil),
		fact(2, 0, "pinnacle", "h2h", "Dallas Cowboys", 150, nil),
		fact(3, 0, "betmgm", "h2h", "Dallas Cowboys", 145, nil),
	}}
	engine := newTestEngine(reader)

	got, err := engine.LineMovements(context.Background(), Query{
		EventID:     "evt1",
		Sportsbooks: []string{"pinnacle"},
		Market:      "h2h",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d movements, want 2", len(got))
	}
	if got[0].Price != 150 || got[1].Price != 160 {
		t.Errorf("movements out of order: %v, %v", got[0].Price, got[1].Price)
	}
}

func TestEngineGames(t *testing.T) {
	later := fact(2, 0, "pinnacle", "spreads", "Dallas Cowboys", -110, pt(3.5))
	later.EventID = "evt2"
	later.CommenceTime = time.Date(2025, 9, 12, 0, 15, 0, 0, time.UTC)
	reader := &memReader{facts: []storage.OddsFact{
		fact(1, 0, "pinnacle", "spreads", "Dallas Cowboys", -110, pt(3.5)),
		later,
	}}

	games, err := newTestEngine(reader).Games(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 2 || games[0].EventID != "evt2" || games[0].Week != 2 || games[1].Week != 1 {
		t.Errorf("games = %+v", games)
	}
}

func TestEngineReaderError(t *testing.T) {
	engine := newTestEngine(&memReader{err: errors.New("connection reset")})

	if _, err := engine.Games(context.Background()); err == nil {
		t.Error("Games() expected error")
	}
	if _, err := engine.GameSummary(context.Background(), Query{EventID: "evt1", Sportsbooks: []string{"pinnacle"}, Market: "spreads"}); err == nil {
		t.Error("GameSummary() expected error")
	}
	if _, err := engine.LineMovements(context.Background(), Query{EventID: "evt1", Sportsbooks: []string{"pinnacle"}, Market: "spreads"}); err == nil {
		t.Error("LineMovements() expected error")
	}
}
