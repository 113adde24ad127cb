package storage

import (
	"time"

	"gorm.io/gorm"
)

// OddsFact is one row of the raw fact table: a single outcome quoted by one
// bookmaker in one market of one event, as captured at CapturedAt. Rows are
// append-only. ID follows insertion order and breaks captured_at ties.
type OddsFact struct {
	ID                  uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	CapturedAt          time.Time `gorm:"not null;index:idx_raw_odds_group,priority:4" json:"captured_at"`
	EventID             string    `gorm:"size:64;not null;index:idx_raw_odds_group,priority:1" json:"event_id"`
	SportKey            string    `gorm:"size:64;not null" json:"sport_key"`
	CommenceTime        time.Time `gorm:"not null" json:"commence_time"`
	HomeTeam            string    `gorm:"size:128;not null" json:"home_team"`
	AwayTeam            string    `gorm:"size:128;not null" json:"away_team"`
	BookmakerKey        string    `gorm:"size:64;not null;index:idx_raw_odds_group,priority:3" json:"bookmaker_key"`
	BookmakerTitle      string    `gorm:"size:128" json:"bookmaker_title"`
	BookmakerLastUpdate time.Time `json:"bookmaker_last_update"`
	MarketKey           string    `gorm:"size:32;not null;index:idx_raw_odds_group,priority:2" json:"market_key"`
	OutcomeName         string    `gorm:"size:128;not null" json:"outcome_name"`
	OutcomePrice        float64   `gorm:"not null" json:"outcome_price"`
	OutcomePoint        *float64  `json:"outcome_point,omitempty"`
	LoadedAt            time.Time `gorm:"not null" json:"loaded_at"`
}

func (OddsFact) TableName() string {
	return "raw_odds"
}

// BeforeCreate hook for timestamps
func (f *OddsFact) BeforeCreate(tx *gorm.DB) error {
	if f.LoadedAt.IsZero() {
		f.LoadedAt = time.Now().UTC()
	}
	return nil
}

// EventHeader is one distinct event in the fact table with its latest start
// time.
type EventHeader struct {
	EventID      string
	HomeTeam     string
	AwayTeam     string
	CommenceTime time.Time
}

// FactFilter selects fact rows for one event and market, restricted to a
// set of bookmakers. An empty Bookmakers slice matches none.
type FactFilter struct {
	EventID    string
	Bookmakers []string
	MarketKey  string
}
