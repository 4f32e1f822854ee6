package pricing_test

import (
	"testing"
	"time"

	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/pricing"
	"github.com/xraph/turnstile/types"
)

var now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

// testPolicy mirrors the organiser configuration used throughout:
// event in 90 days, 5% base fee, 30d/7d buckets with 15%/5% caps and
// 8%/3% time fees, 2% surcharge per full 10% of markup, 25% fee ceiling.
func testPolicy() *policy.Policy {
	return &policy.Policy{
		EventAt:             now.Add(90 * day),
		BaseFeeBps:          types.Bps(500),
		TLong:               30 * day,
		TMid:                7 * day,
		CapLongBps:          types.Bps(1500),
		CapMidBps:           types.Bps(500),
		FeeLongBps:          types.Bps(800),
		FeeMidBps:           types.Bps(300),
		MarkupStepBps:       types.Bps(1000),
		MarkupFeePerStepBps: types.Bps(200),
		MaxFeeBps:           types.Bps(2500),
	}
}

func saleAt(t time.Time, price int64, amount int64) pricing.Context {
	return pricing.Context{
		From:       "alice",
		To:         "bob",
		UnitTypeID: 1,
		Amount:     amount,
		TotalPrice: price,
		Now:        t,
	}
}

func TestTieredEvaluate(t *testing.T) {
	const face = int64(100000)

	tests := []struct {
		name       string
		ctx        pricing.Context
		pol        *policy.Policy
		face       int64
		wantAllow  bool
		wantFee    types.Bps
		wantReason string
	}{
		{
			// 10% markup in the long bucket: base 500 + time 800 +
			// one full markup step 200 = 1500 bps.
			name:      "long bucket with one markup step",
			ctx:       saleAt(now, 110000, 1),
			pol:       testPolicy(),
			face:      face,
			wantAllow: true,
			wantFee:   types.Bps(1500),
		},
		{
			// 150% markup blows through the 15% cap (115000).
			name:       "price exceeds long bucket cap",
			ctx:        saleAt(now, 250000, 1),
			pol:        testPolicy(),
			face:       face,
			wantReason: pricing.ReasonPriceExceedsCap,
		},
		{
			name:      "at face value no markup fee",
			ctx:       saleAt(now, 100000, 1),
			pol:       testPolicy(),
			face:      face,
			wantAllow: true,
			wantFee:   types.Bps(1300), // base 500 + time 800
		},
		{
			name:      "exactly at cap allowed",
			ctx:       saleAt(now, 115000, 1),
			pol:       testPolicy(),
			face:      face,
			wantAllow: true,
			wantFee:   types.Bps(1500), // 15% markup = one full 10% step
		},
		{
			// 14 days out: mid bucket, cap 5% (105000).
			name:      "mid bucket sale",
			ctx:       saleAt(now.Add(76 * day), 105000, 1),
			pol:       testPolicy(),
			face:      face,
			wantAllow: true,
			wantFee:   types.Bps(800), // base 500 + time 300, 5% markup under step
		},
		{
			name:       "mid bucket cap tighter than long",
			ctx:        saleAt(now.Add(76 * day), 110000, 1),
			pol:        testPolicy(),
			face:       face,
			wantReason: pricing.ReasonPriceExceedsCap,
		},
		{
			// 3 days out: inside TMid, cap is zero, face value only.
			name:      "short window face value only",
			ctx:       saleAt(now.Add(87 * day), 100000, 1),
			pol:       testPolicy(),
			face:      face,
			wantAllow: true,
			wantFee:   types.Bps(500), // base only
		},
		{
			name:       "short window any markup rejected",
			ctx:        saleAt(now.Add(87 * day), 100001, 1),
			pol:        testPolicy(),
			face:       face,
			wantReason: pricing.ReasonPriceExceedsCap,
		},
		{
			name:      "gift allowed regardless of bucket",
			ctx:       saleAt(now.Add(87*day), 0, 1),
			pol:       testPolicy(),
			face:      face,
			wantAllow: true,
			wantFee:   0,
		},
		{
			name:      "gift allowed even with face value unset",
			ctx:       saleAt(now, 0, 1),
			pol:       testPolicy(),
			face:      0,
			wantAllow: true,
			wantFee:   0,
		},
		{
			name:       "sale with face value unset rejected",
			ctx:        saleAt(now, 50000, 1),
			pol:        testPolicy(),
			face:       0,
			wantReason: pricing.ReasonFaceValueNotSet,
		},
		{
			name:       "event already started",
			ctx:        saleAt(now.Add(90 * day), 100000, 1),
			pol:        testPolicy(),
			face:       face,
			wantReason: pricing.ReasonEventStarted,
		},
		{
			name:      "unconfigured policy allows everything",
			ctx:       saleAt(now, 999999999, 1),
			pol:       &policy.Policy{},
			face:      0,
			wantAllow: true,
			wantFee:   0,
		},
		{
			name:      "nil policy allows everything",
			ctx:       saleAt(now, 999999999, 1),
			pol:       nil,
			face:      0,
			wantAllow: true,
			wantFee:   0,
		},
		{
			// 220000 for 2 units truncates to 110000 per unit: same as
			// the single-unit 10% markup sale.
			name:      "multi-unit per-unit price truncates",
			ctx:       saleAt(now, 220001, 2),
			pol:       testPolicy(),
			face:      face,
			wantAllow: true,
			wantFee:   types.Bps(1500),
		},
		{
			// Per-unit 115000 exactly at cap only because of truncation;
			// one more unit of price per unit would reject.
			name:      "multi-unit truncation at cap boundary",
			ctx:       saleAt(now, 230001, 2),
			pol:       testPolicy(),
			face:      face,
			wantAllow: true,
			wantFee:   types.Bps(1500),
		},
		{
			// Fee ceiling: a policy with a huge markup surcharge still
			// caps at MaxFeeBps.
			name: "total fee capped",
			ctx:  saleAt(now, 115000, 1),
			pol: func() *policy.Policy {
				p := testPolicy()
				p.MarkupFeePerStepBps = types.Bps(9000)
				return p
			}(),
			face:      face,
			wantAllow: true,
			wantFee:   types.Bps(2500),
		},
	}

	var strat pricing.Tiered
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strat.Evaluate(tt.ctx, tt.pol, tt.face)
			if got.Allowed != tt.wantAllow {
				t.Fatalf("allowed: got %v, want %v (reason %q)", got.Allowed, tt.wantAllow, got.Reason)
			}
			if tt.wantAllow && got.FeeBps != tt.wantFee {
				t.Errorf("fee: got %d, want %d", got.FeeBps, tt.wantFee)
			}
			if !tt.wantAllow && got.Reason != tt.wantReason {
				t.Errorf("reason: got %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

// Within a fixed time bucket, raising the price never lowers the fee, and
// once the ceiling is hit the fee stays constant.
func TestTieredFeeMonotonicity(t *testing.T) {
	pol := testPolicy()
	const face = int64(100000)

	var strat pricing.Tiered
	var prev types.Bps
	hitCeiling := false

	for price := face; price <= face+pol.CapLongBps.ApplyTo(face); price += 500 {
		d := strat.Evaluate(saleAt(now, price, 1), pol, face)
		if !d.Allowed {
			t.Fatalf("price %d unexpectedly rejected: %s", price, d.Reason)
		}
		if d.FeeBps < prev {
			t.Fatalf("fee decreased from %d to %d at price %d", prev, d.FeeBps, price)
		}
		if hitCeiling && d.FeeBps != pol.MaxFeeBps {
			t.Fatalf("fee left ceiling at price %d: %d", price, d.FeeBps)
		}
		if d.FeeBps == pol.MaxFeeBps {
			hitCeiling = true
		}
		prev = d.FeeBps
	}
}

// Determinism: identical inputs always produce identical decisions.
func TestTieredDeterministic(t *testing.T) {
	pol := testPolicy()
	ctx := saleAt(now.Add(40*day), 107000, 1)

	var strat pricing.Tiered
	first := strat.Evaluate(ctx, pol, 100000)
	for range 10 {
		if got := strat.Evaluate(ctx, pol, 100000); got != first {
			t.Fatalf("non-deterministic decision: %+v vs %+v", got, first)
		}
	}
}

func TestAllowAll(t *testing.T) {
	var strat pricing.AllowAll

	d := strat.Evaluate(saleAt(now.Add(200*day), 999999999, 1), testPolicy(), 0)
	if !d.Allowed || d.FeeBps != 0 {
		t.Errorf("allow-all: got %+v", d)
	}
}

func TestStrategyNames(t *testing.T) {
	if got := (pricing.Tiered{}).StrategyName(); got != pricing.TieredName {
		t.Errorf("tiered name: %q", got)
	}
	if got := (pricing.AllowAll{}).StrategyName(); got != pricing.AllowAllName {
		t.Errorf("allow-all name: %q", got)
	}
}
