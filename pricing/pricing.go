// Package pricing decides whether a transfer may proceed and what fee
// applies. Strategies are pure: given the same context, policy, and face
// value they always return the same decision, which keeps enforcement
// reproducible under test.
package pricing

import (
	"time"

	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/types"
)

// Rejection reasons returned in Decision.Reason.
const (
	ReasonFaceValueNotSet = "face value not set"
	ReasonEventStarted    = "event already started"
	ReasonPriceExceedsCap = "price exceeds cap"
)

// Context carries one transfer attempt through evaluation. It is built per
// call and never persisted.
type Context struct {
	From       string
	To         string
	UnitTypeID uint64

	// Amount is the number of units moving. Callers must ensure it is
	// positive before evaluation.
	Amount int64

	// TotalPrice is the full sale price for Amount units. Zero marks a
	// gift transfer.
	TotalPrice int64

	// Now is the evaluation time, taken from the engine clock.
	Now time.Time

	// RegionProof and AgeProof are opaque eligibility proof blobs. The
	// engine passes them to its verifier; strategies ignore them.
	RegionProof []byte
	AgeProof    []byte
}

// Gift reports whether the transfer carries no price.
func (c Context) Gift() bool { return c.TotalPrice == 0 }

// Decision is the outcome of evaluating one transfer.
type Decision struct {
	Allowed bool      `json:"allowed"`
	FeeBps  types.Bps `json:"fee_bps"`
	Reason  string    `json:"reason,omitempty"`
}

// Allow returns an approving decision with the given fee.
func Allow(fee types.Bps) Decision { return Decision{Allowed: true, FeeBps: fee} }

// Reject returns a denying decision with the given reason.
func Reject(reason string) Decision { return Decision{Reason: reason} }

// Strategy evaluates transfer attempts against a collection's policy.
// Implementations must be pure and side-effect free.
type Strategy interface {
	// StrategyName identifies the strategy for per-collection selection.
	StrategyName() string

	// Evaluate decides one transfer. pol may be nil or unconfigured, in
	// which case every transfer is allowed at zero fee. faceValue is the
	// per-unit reference price; zero means unset.
	Evaluate(ctx Context, pol *policy.Policy, faceValue int64) Decision
}

// Tiered is the default anti-scalping strategy: time-to-event price caps
// and fee tiers plus a markup-stepped surcharge, all in integer basis-point
// arithmetic.
type Tiered struct{}

// TieredName is the registered name of the default strategy.
const TieredName = "tiered"

// StrategyName implements Strategy.
func (Tiered) StrategyName() string { return TieredName }

// Evaluate implements Strategy.
func (Tiered) Evaluate(ctx Context, pol *policy.Policy, faceValue int64) Decision {
	if !pol.Configured() {
		return Allow(0)
	}

	// Gifts bypass every pricing check.
	if ctx.Gift() {
		return Allow(0)
	}

	if faceValue == 0 {
		return Reject(ReasonFaceValueNotSet)
	}

	if !ctx.Now.Before(pol.EventAt) {
		return Reject(ReasonEventStarted)
	}

	delta := pol.EventAt.Sub(ctx.Now)

	var capBps, timeFeeBps types.Bps
	switch {
	case delta > pol.TLong:
		capBps, timeFeeBps = pol.CapLongBps, pol.FeeLongBps
	case delta > pol.TMid:
		capBps, timeFeeBps = pol.CapMidBps, pol.FeeMidBps
	default:
		// Inside the mid window: face value only, no time fee.
	}

	pricePerUnit := types.PerUnit(ctx.TotalPrice, ctx.Amount)

	maxAllowedPrice := faceValue + capBps.ApplyTo(faceValue)
	if pricePerUnit > maxAllowedPrice {
		return Reject(ReasonPriceExceedsCap)
	}

	markup := types.Markup(pricePerUnit, faceValue)

	var markupFee types.Bps
	if pol.MarkupStepBps > 0 {
		steps := int64(markup) / int64(pol.MarkupStepBps)
		markupFee = types.Bps(steps) * pol.MarkupFeePerStepBps
	}

	total := pol.BaseFeeBps.Add(timeFeeBps).Add(markupFee).Cap(pol.MaxFeeBps)
	return Allow(total)
}

// AllowAll approves every transfer at zero fee regardless of policy. It is
// the opt-out strategy for collections that want ledger movement without
// resale enforcement.
type AllowAll struct{}

// AllowAllName is the registered name of the allow-all strategy.
const AllowAllName = "allow-all"

// StrategyName implements Strategy.
func (AllowAll) StrategyName() string { return AllowAllName }

// Evaluate implements Strategy.
func (AllowAll) Evaluate(Context, *policy.Policy, int64) Decision {
	return Allow(0)
}
