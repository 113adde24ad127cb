package aggregation

import (
	"sort"
	"time"

	"github.com/liamashdown/linetracker/internal/storage"
)

// LineMovement is one quote in the time series of an
// (event, sportsbook, market, outcome) group.
type LineMovement struct {
	EventID       string    `json:"event_id"`
	HomeTeam      string    `json:"home_team"`
	AwayTeam      string    `json:"away_team"`
	GameStartTime time.Time `json:"game_start_time"`
	CapturedAt    time.Time `json:"captured_at"`
	Sportsbook    string    `json:"sportsbook"`
	MarketType    string    `json:"market_type"`
	Outcome       string    `json:"outcome"`
	Line          float64   `json:"line"`
	Price         float64   `json:"price"`
	ImpliedProb   float64   `json:"implied_prob"`
}

type groupKey struct {
	eventID    string
	sportsbook string
	market     string
	outcome    string
}

func (m LineMovement) key() groupKey {
	return groupKey{eventID: m.EventID, sportsbook: m.Sportsbook, market: m.MarketType, outcome: m.Outcome}
}

// lineFor returns the point, or for markets without one (moneyline) the
// price itself, which is the number that moves.
func lineFor(f storage.OddsFact) float64 {
	if f.OutcomePoint != nil {
		return *f.OutcomePoint
	}
	return f.OutcomePrice
}

// LineMovements converts fact rows into line-movement records ordered by
// captured_at. facts must be in insertion order; rows with equal
// captured_at keep that order.
func LineMovements(facts []storage.OddsFact) []LineMovement {
	movements := make([]LineMovement, 0, len(facts))
	for _, f := range facts {
		movements = append(movements, LineMovement{
			EventID:       f.EventID,
			HomeTeam:      f.HomeTeam,
			AwayTeam:      f.AwayTeam,
			GameStartTime: f.CommenceTime,
			CapturedAt:    f.CapturedAt,
			Sportsbook:    f.BookmakerKey,
			MarketType:    f.MarketKey,
			Outcome:       f.OutcomeName,
			Line:          lineFor(f),
			Price:         f.OutcomePrice,
			ImpliedProb:   ImpliedProbability(f.OutcomePrice),
		})
	}

	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].CapturedAt.Before(movements[j].CapturedAt)
	})

	return movements
}

// groupMovements partitions movements by (event, sportsbook, market,
// outcome). Groups appear in order of first occurrence and each group is
// sorted by captured_at, ties kept in input order.
func groupMovements(movements []LineMovement) [][]LineMovement {
	index := make(map[groupKey]int)
	var groups [][]LineMovement
	for _, m := range movements {
		k := m.key()
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], m)
	}

	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].CapturedAt.Before(g[j].CapturedAt)
		})
	}
	return groups
}
