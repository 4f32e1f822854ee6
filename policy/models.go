// Package policy defines the per-collection resale policy model: the fee and
// cap parameters an organiser configures, and the collection record that
// anchors owner authorization.
package policy

import (
	"fmt"
	"time"

	"github.com/xraph/turnstile/id"
	"github.com/xraph/turnstile/types"
)

// Collection is a registered ticket collection. The external factory
// instantiates collections; Turnstile records them so mutating operations
// can be checked against the owner.
type Collection struct {
	types.Entity
	ID    id.CollectionID `json:"id"`
	Name  string          `json:"name"`
	Owner string          `json:"owner"`

	// Strategy is the name of the pricing strategy used for this
	// collection. Empty selects the engine default.
	Strategy string `json:"strategy,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Policy holds the anti-scalping parameters for one collection.
//
// A zero EventAt is the sentinel for "no policy configured": every transfer
// is allowed at zero fee. All rates are basis points of the relevant
// reference amount.
type Policy struct {
	types.Entity

	// EventAt is the moment the event starts. Resale stops at this time.
	EventAt time.Time `json:"event_at"`

	// BaseFeeBps is charged on every priced transfer.
	BaseFeeBps types.Bps `json:"base_fee_bps"`

	// TLong and TMid divide the time before the event into three buckets:
	// more than TLong out, between TLong and TMid out, and inside TMid.
	// TLong must be strictly greater than TMid.
	TLong time.Duration `json:"t_long"`
	TMid  time.Duration `json:"t_mid"`

	// CapLongBps and CapMidBps limit how far above face value a sale may
	// price, per bucket. Inside TMid the cap is zero: face value only.
	CapLongBps types.Bps `json:"cap_long_bps"`
	CapMidBps  types.Bps `json:"cap_mid_bps"`

	// FeeLongBps and FeeMidBps are the time-bucket fee components.
	FeeLongBps types.Bps `json:"fee_long_bps"`
	FeeMidBps  types.Bps `json:"fee_mid_bps"`

	// MarkupStepBps is the markup band size; MarkupFeePerStepBps is added
	// for each full band the sale's markup spans. A zero step disables the
	// markup surcharge.
	MarkupStepBps       types.Bps `json:"markup_step_bps"`
	MarkupFeePerStepBps types.Bps `json:"markup_fee_per_step_bps"`

	// MaxFeeBps caps the total fee. At most 10000 (100%).
	MaxFeeBps types.Bps `json:"max_fee_bps"`
}

// Configured reports whether a policy has been set. An unconfigured policy
// allows all transfers at zero fee.
func (p *Policy) Configured() bool {
	return p != nil && !p.EventAt.IsZero()
}

// Validate checks the policy invariants against the given current time.
// It returns a *ValidationError naming the first violated field, or nil.
func (p *Policy) Validate(now time.Time) error {
	if !p.EventAt.After(now) {
		return &ValidationError{Field: "event_at", Message: "event time must be in the future"}
	}
	if p.TLong <= p.TMid {
		return &ValidationError{Field: "t_long", Message: "tLong must be greater than tMid"}
	}
	if p.MaxFeeBps > types.Full {
		return &ValidationError{Field: "max_fee_bps", Message: "max fee cannot exceed 10000 bps"}
	}
	for _, f := range []struct {
		name string
		v    types.Bps
	}{
		{"base_fee_bps", p.BaseFeeBps},
		{"cap_long_bps", p.CapLongBps},
		{"cap_mid_bps", p.CapMidBps},
		{"fee_long_bps", p.FeeLongBps},
		{"fee_mid_bps", p.FeeMidBps},
		{"markup_step_bps", p.MarkupStepBps},
		{"markup_fee_per_step_bps", p.MarkupFeePerStepBps},
		{"max_fee_bps", p.MaxFeeBps},
	} {
		if f.v < 0 {
			return &ValidationError{Field: f.name, Message: "rate cannot be negative"}
		}
	}
	return nil
}

// ValidationError reports a rejected policy or face-value configuration.
// The prior configuration is left untouched when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("turnstile: validation failed for %s: %s", e.Field, e.Message)
}
