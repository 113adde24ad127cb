package oddsapi

import "time"

// Snapshot is one historical odds response. Raw holds the body exactly as the
// provider sent it; the decoded fields are for logging and validation.
type Snapshot struct {
	Timestamp         time.Time `json:"timestamp"`
	PreviousTimestamp time.Time `json:"previous_timestamp"`
	NextTimestamp     time.Time `json:"next_timestamp"`
	Data              []Event   `json:"data"`

	Raw   []byte `json:"-"`
	Quota Quota  `json:"-"`
}

// Event is one game with the bookmakers quoting it.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker is one operator's markets for an event.
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// Market is one bet type (h2h, spreads, totals).
type Market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Outcome is one side of a market. Point is nil for moneyline.
type Outcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"` // American odds
	Point *float64 `json:"point,omitempty"`
}

// Quota is the usage reported in the provider's response headers.
// Values are -1 when a header is missing.
type Quota struct {
	Remaining int
	Used      int
	Last      int
}

// ErrorResponse is the provider's error body
type ErrorResponse struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}
