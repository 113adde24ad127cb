package warehouse

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/liamashdown/linetracker/internal/oddsapi"
	"github.com/liamashdown/linetracker/internal/storage"
)

// snapshotDocument mirrors oddsapi.Snapshot with pointer fields so that a
// missing "data" array can be told apart from an empty one.
type snapshotDocument struct {
	Timestamp *time.Time       `json:"timestamp"`
	Data      *[]oddsapi.Event `json:"data"`
}

// Flatten turns one raw snapshot into fact rows, one per
// event/bookmaker/market/outcome. captured_at is the snapshot's own
// timestamp, or capturedAt when the document carries none. Rows are neither
// dropped nor deduplicated. A payload that is not a snapshot, or that lacks
// an identifying field, is an error.
func Flatten(capturedAt time.Time, payload []byte) ([]storage.OddsFact, error) {
	var doc snapshotDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Data == nil {
		return nil, errors.New("snapshot has no data array")
	}

	ts := capturedAt.UTC()
	if doc.Timestamp != nil && !doc.Timestamp.IsZero() {
		ts = doc.Timestamp.UTC()
	}

	var rows []storage.OddsFact
	for ei, e := range *doc.Data {
		if e.ID == "" {
			return nil, fmt.Errorf("event %d: missing id", ei)
		}
		if e.CommenceTime.IsZero() {
			return nil, fmt.Errorf("event %s: missing commence_time", e.ID)
		}
		for bi, b := range e.Bookmakers {
			if b.Key == "" {
				return nil, fmt.Errorf("event %s bookmaker %d: missing key", e.ID, bi)
			}
			for mi, m := range b.Markets {
				if m.Key == "" {
					return nil, fmt.Errorf("event %s bookmaker %s market %d: missing key", e.ID, b.Key, mi)
				}
				for oi, o := range m.Outcomes {
					if o.Name == "" {
						return nil, fmt.Errorf("event %s bookmaker %s market %s outcome %d: missing name",
							e.ID, b.Key, m.Key, oi)
					}
					rows = append(rows, storage.OddsFact{
						CapturedAt:          ts,
						EventID:             e.ID,
						SportKey:            e.SportKey,
						CommenceTime:        e.CommenceTime.UTC(),
						HomeTeam:            e.HomeTeam,
						AwayTeam:            e.AwayTeam,
						BookmakerKey:        b.Key,
						BookmakerTitle:      b.Title,
						BookmakerLastUpdate: b.LastUpdate.UTC(),
						MarketKey:           m.Key,
						OutcomeName:         o.Name,
						OutcomePrice:        o.Price,
						OutcomePoint:        o.Point,
					})
				}
			}
		}
	}

	return rows, nil
}
