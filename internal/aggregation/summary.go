package aggregation

import (
	"sort"
	"time"
)

// GameSummary rolls up one (event, sportsbook, market, outcome) group from
// its first to its last capture.
type GameSummary struct {
	EventID               string    `json:"event_id"`
	Sportsbook            string    `json:"sportsbook"`
	MarketType            string    `json:"market_type"`
	Outcome               string    `json:"outcome"`
	OpeningAt             time.Time `json:"opening_at"`
	ClosingAt             time.Time `json:"closing_at"`
	OpeningLine           float64   `json:"opening_line"`
	ClosingLine           float64   `json:"closing_line"`
	TotalLineMovement     float64   `json:"total_line_movement"`
	OpeningPrice          float64   `json:"opening_price"`
	ClosingPrice          float64   `json:"closing_price"`
	OpeningImpliedProbPct float64   `json:"opening_implied_prob_pct"`
	ClosingImpliedProbPct float64   `json:"closing_implied_prob_pct"`
	ImpliedProbPctChange  float64   `json:"implied_prob_pct_change"`
	CaptureCount          int       `json:"capture_count"`
}

// GameSummaries computes one summary per group present in movements.
// Opening is the earliest capture and closing the latest; when several rows
// share either instant the first in input order is used. A single capture
// yields zero movement. Results are ordered by event, market, sportsbook and
// outcome.
func GameSummaries(movements []LineMovement) []GameSummary {
	groups := groupMovements(movements)
	summaries := make([]GameSummary, 0, len(groups))

	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		opening := g[0]
		closing := firstAt(g, g[len(g)-1].CapturedAt)

		openingPct := opening.ImpliedProb * 100
		closingPct := closing.ImpliedProb * 100

		summaries = append(summaries, GameSummary{
			EventID:               opening.EventID,
			Sportsbook:            opening.Sportsbook,
			MarketType:            opening.MarketType,
			Outcome:               opening.Outcome,
			OpeningAt:             opening.CapturedAt,
			ClosingAt:             closing.CapturedAt,
			OpeningLine:           opening.Line,
			ClosingLine:           closing.Line,
			TotalLineMovement:     closing.Line - opening.Line,
			OpeningPrice:          opening.Price,
			ClosingPrice:          closing.Price,
			OpeningImpliedProbPct: openingPct,
			ClosingImpliedProbPct: closingPct,
			ImpliedProbPctChange:  closingPct - openingPct,
			CaptureCount:          distinctCaptures(g),
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.MarketType != b.MarketType {
			return a.MarketType < b.MarketType
		}
		if a.Sportsbook != b.Sportsbook {
			return a.Sportsbook < b.Sportsbook
		}
		return a.Outcome < b.Outcome
	})

	return summaries
}

// firstAt returns the first movement in a sorted group captured at ts.
func firstAt(group []LineMovement, ts time.Time) LineMovement {
	for _, m := range group {
		if m.CapturedAt.Equal(ts) {
			return m
		}
	}
	return group[len(group)-1]
}

func distinctCaptures(group []LineMovement) int {
	count := 0
	for i, m := range group {
		if i == 0 || !m.CapturedAt.Equal(group[i-1].CapturedAt) {
			count++
		}
	}
	return count
}
