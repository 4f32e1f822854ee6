// Package holding tracks per-(holder, unit-type) transfer state: the
// cooldown clock, the first-transfer flag, and the check-in mark.
package holding

import (
	"time"

	"github.com/xraph/turnstile/id"
	"github.com/xraph/turnstile/types"
)

// Cooldown windows. A freshly issued (minted) holding waits the first-transfer
// window before it may move on; a holding acquired through a transfer waits
// the resale window.
const (
	FirstTransferWindow = 72 * time.Hour
	ResaleWindow        = 24 * time.Hour
)

// State is the transfer state for one holder's units of one unit type within
// a collection. It is created on acquisition and retained for the life of
// the holding.
type State struct {
	types.Entity
	Collection id.CollectionID `json:"collection"`
	Holder     string          `json:"holder"`
	UnitTypeID uint64          `json:"unit_type_id"`

	// LastTransferAt is when this holding last acquired units, mint or
	// transfer. The cooldown clock starts here.
	LastTransferAt time.Time `json:"last_transfer_at"`

	// FirstTransferPending marks a holding that has never moved since
	// mint. It selects the longer first-transfer window and is cleared
	// permanently by the first transfer touching the holding.
	FirstTransferPending bool `json:"first_transfer_pending"`

	// CheckedInAt is set exactly once when the holder checks in.
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

// NewMinted returns the state for a holding acquired by mint at t.
func NewMinted(col id.CollectionID, holder string, unitTypeID uint64, t time.Time) *State {
	return &State{
		Entity:               types.EntityAt(t),
		Collection:           col,
		Holder:               holder,
		UnitTypeID:           unitTypeID,
		LastTransferAt:       t,
		FirstTransferPending: true,
	}
}

// NewTransferred returns the state for a holding acquired by transfer at t.
func NewTransferred(col id.CollectionID, holder string, unitTypeID uint64, t time.Time) *State {
	return &State{
		Entity:         types.EntityAt(t),
		Collection:     col,
		Holder:         holder,
		UnitTypeID:     unitTypeID,
		LastTransferAt: t,
	}
}

// Window returns the cooldown window this holding must observe before its
// units may transfer onward.
func (s *State) Window() time.Duration {
	if s.FirstTransferPending {
		return FirstTransferWindow
	}
	return ResaleWindow
}

// CooldownRemaining returns how much of the window is still outstanding at
// now. Zero or negative means the holding is eligible to transfer; a
// transfer attempted exactly at the window boundary proceeds.
func (s *State) CooldownRemaining(now time.Time) time.Duration {
	if s == nil || s.LastTransferAt.IsZero() {
		return 0
	}
	return s.LastTransferAt.Add(s.Window()).Sub(now)
}

// CheckedIn reports whether the holding has been used.
func (s *State) CheckedIn() bool {
	return s != nil && s.CheckedInAt != nil
}

// RecordTransfer moves the holding into the post-transfer state at t: the
// cooldown clock restarts and the first-transfer flag clears for good.
func (s *State) RecordTransfer(t time.Time) {
	s.LastTransferAt = t
	s.FirstTransferPending = false
	s.UpdatedAt = t
}
