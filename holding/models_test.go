package holding

import (
	"testing"
	"time"

	"github.com/xraph/turnstile/id"
)

var t0 = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestWindowSelection(t *testing.T) {
	col := id.NewCollectionID()

	minted := NewMinted(col, "alice", 1, t0)
	if got := minted.Window(); got != FirstTransferWindow {
		t.Errorf("minted window: got %v, want %v", got, FirstTransferWindow)
	}

	transferred := NewTransferred(col, "bob", 1, t0)
	if got := transferred.Window(); got != ResaleWindow {
		t.Errorf("transferred window: got %v, want %v", got, ResaleWindow)
	}
}

func TestCooldownRemaining(t *testing.T) {
	col := id.NewCollectionID()

	tests := []struct {
		name     string
		state    *State
		now      time.Time
		eligible bool
	}{
		{"minted just before boundary", NewMinted(col, "a", 1, t0), t0.Add(72*time.Hour - time.Minute), false},
		{"minted at boundary", NewMinted(col, "a", 1, t0), t0.Add(72 * time.Hour), true},
		{"minted past boundary", NewMinted(col, "a", 1, t0), t0.Add(80 * time.Hour), true},
		{"transferred just before boundary", NewTransferred(col, "a", 1, t0), t0.Add(24*time.Hour - time.Second), false},
		{"transferred at boundary", NewTransferred(col, "a", 1, t0), t0.Add(24 * time.Hour), true},
		{"nil state eligible", nil, t0, true},
		{"zero clock eligible", &State{}, t0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remaining := tt.state.CooldownRemaining(tt.now)
			if got := remaining <= 0; got != tt.eligible {
				t.Errorf("eligible: got %v (remaining %v), want %v", got, remaining, tt.eligible)
			}
		})
	}
}

func TestRecordTransferClearsFirstFlag(t *testing.T) {
	col := id.NewCollectionID()
	s := NewMinted(col, "alice", 1, t0)

	t1 := t0.Add(100 * time.Hour)
	s.RecordTransfer(t1)

	if s.FirstTransferPending {
		t.Error("first-transfer flag should clear after transfer")
	}
	if !s.LastTransferAt.Equal(t1) {
		t.Errorf("cooldown clock: got %v, want %v", s.LastTransferAt, t1)
	}
	if got := s.Window(); got != ResaleWindow {
		t.Errorf("window after transfer: got %v, want %v", got, ResaleWindow)
	}
}

func TestCheckedIn(t *testing.T) {
	col := id.NewCollectionID()
	s := NewMinted(col, "alice", 1, t0)

	if s.CheckedIn() {
		t.Error("fresh holding should not be checked in")
	}

	at := t0.Add(time.Hour)
	s.CheckedInAt = &at
	if !s.CheckedIn() {
		t.Error("holding with CheckedInAt should report checked in")
	}

	var nilState *State
	if nilState.CheckedIn() {
		t.Error("nil state should not report checked in")
	}
}
