package aggregation

import (
	"fmt"
	"sort"
	"time"

	"github.com/liamashdown/linetracker/internal/storage"
)

const (
	// weekBoundaryOffset pulls US evening kickoffs, which fall after
	// midnight UTC, back onto their local game day.
	weekBoundaryOffset = 12 * time.Hour

	// SuperBowlWeek is the last week index. The bye before the Super Bowl
	// is folded into it.
	SuperBowlWeek = 22
)

// Game is one distinct event with its start time and season week.
type Game struct {
	EventID       string    `json:"event_id"`
	HomeTeam      string    `json:"home_team"`
	AwayTeam      string    `json:"away_team"`
	GameStartTime time.Time `json:"game_start_time"`
	Week          int       `json:"week"`
	WeekLabel     string    `json:"week_label"`
}

// Week returns the 1-based season week of a kickoff. Weeks run Tuesday to
// Monday starting from the Tuesday on or before seasonStart; kickoffs before
// the season count as week 1 and anything past the conference round as the
// Super Bowl.
func Week(kickoff, seasonStart time.Time) int {
	anchor := weekAnchor(seasonStart)
	local := kickoff.UTC().Add(-weekBoundaryOffset)
	if local.Before(anchor) {
		return 1
	}
	week := int(local.Sub(anchor).Hours()/24)/7 + 1
	if week > SuperBowlWeek {
		week = SuperBowlWeek
	}
	return week
}

// WeekLabel names a week index for display.
func WeekLabel(week int) string {
	switch week {
	case 19:
		return "Wild Card"
	case 20:
		return "Divisional"
	case 21:
		return "Conference Championships"
	case 22:
		return "Super Bowl"
	default:
		return fmt.Sprintf("Week %d", week)
	}
}

func weekAnchor(seasonStart time.Time) time.Time {
	s := seasonStart.UTC()
	day := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	back := (int(day.Weekday()) - int(time.Tuesday) + 7) % 7
	return day.AddDate(0, 0, -back)
}

// Games builds the games list from event headers, latest kickoff first.
func Games(headers []storage.EventHeader, seasonStart time.Time) []Game {
	games := make([]Game, 0, len(headers))
	for _, h := range headers {
		week := Week(h.CommenceTime, seasonStart)
		games = append(games, Game{
			EventID:       h.EventID,
			HomeTeam:      h.HomeTeam,
			AwayTeam:      h.AwayTeam,
			GameStartTime: h.CommenceTime.UTC(),
			Week:          week,
			WeekLabel:     WeekLabel(week),
		})
	}

	sort.SliceStable(games, func(i, j int) bool {
		if !games[i].GameStartTime.Equal(games[j].GameStartTime) {
			return games[i].GameStartTime.After(games[j].GameStartTime)
		}
		return games[i].EventID < games[j].EventID
	})

	return games
}
