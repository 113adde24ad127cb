package storage

import (
	"testing"
	"time"
)

func TestOddsFactTableName(t *testing.T) {
	if got := (OddsFact{}).TableName(); got != "raw_odds" {
		t.Errorf("TableName() = %q, want raw_odds", got)
	}
}

func TestOddsFactBeforeCreate(t *testing.T) {
	tests := []struct {
		name     string
		loadedAt time.Time
		keep     bool
	}{
		{"zero load time is stamped", time.Time{}, false},
		{"explicit load time is kept", time.Date(2025, 9, 4, 2, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &OddsFact{LoadedAt: tt.loadedAt}
			if err := f.BeforeCreate(nil); err != nil {
				t.Fatalf("BeforeCreate() error: %v", err)
			}
			if f.LoadedAt.IsZero() {
				t.Fatal("LoadedAt not set")
			}
			if tt.keep && !f.LoadedAt.Equal(tt.loadedAt) {
				t.Errorf("LoadedAt = %v, want %v", f.LoadedAt, tt.loadedAt)
			}
			if f.LoadedAt.Location() != time.UTC {
				t.Errorf("LoadedAt not UTC: %v", f.LoadedAt.Location())
			}
		})
	}
}
