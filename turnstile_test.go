package turnstile_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/turnstile"
	"github.com/xraph/turnstile/holding"
	"github.com/xraph/turnstile/id"
	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/pricing"
	"github.com/xraph/turnstile/proof"
	"github.com/xraph/turnstile/record"
	"github.com/xraph/turnstile/store/memory"
)

const (
	owner   = "organiser"
	seatA   = uint64(1)
	faceVal = int64(10000)
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine returns a started engine with a controllable clock.
func newTestEngine(t *testing.T, opts ...turnstile.Option) (*turnstile.Engine, *time.Time) {
	t.Helper()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	opts = append([]turnstile.Option{
		turnstile.WithLogger(quietLogger()),
		turnstile.WithClock(func() time.Time { return *clock }),
	}, opts...)

	eng := turnstile.New(memory.New(), opts...)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		_ = eng.Stop()
	})
	return eng, clock
}

func testPolicy(eventAt time.Time) *policy.Policy {
	return &policy.Policy{
		EventAt:             eventAt,
		BaseFeeBps:          500,
		TLong:               30 * 24 * time.Hour,
		TMid:                7 * 24 * time.Hour,
		CapLongBps:          1500,
		CapMidBps:           500,
		FeeLongBps:          800,
		FeeMidBps:           300,
		MarkupStepBps:       1000,
		MarkupFeePerStepBps: 200,
		MaxFeeBps:           2500,
	}
}

// setupCollection registers a collection with the standard test policy,
// records a face value, and mints two units to alice.
func setupCollection(t *testing.T, eng *turnstile.Engine, clock *time.Time) id.CollectionID {
	t.Helper()
	ctx := context.Background()

	col, err := eng.CreateCollection(ctx, owner, "Main Stage", nil)
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := eng.SetPolicy(ctx, owner, col.ID, testPolicy(clock.Add(90*24*time.Hour))); err != nil {
		t.Fatalf("SetPolicy: %v", err)
	}
	if err := eng.SetFaceValue(ctx, owner, col.ID, seatA, faceVal); err != nil {
		t.Fatalf("SetFaceValue: %v", err)
	}
	if err := eng.Mint(ctx, owner, col.ID, "alice", seatA, 2); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return col.ID
}

func balance(t *testing.T, eng *turnstile.Engine, holder string) int64 {
	t.Helper()
	b, err := eng.Ledger().BalanceOf(context.Background(), holder, seatA)
	if err != nil {
		t.Fatalf("BalanceOf(%s): %v", holder, err)
	}
	return b
}

func TestTransferLongWindowFee(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	// Clear the first-transfer cooldown; still 87 days to the event.
	*clock = clock.Add(holding.FirstTransferWindow)

	// 10% markup over face, long window: base 500 + time 800 + one
	// markup step 200 = 1500 bps.
	err := eng.TransferWithPrice(ctx, colID, "alice", "bob", seatA, 1, 11000, nil, nil)
	if err != nil {
		t.Fatalf("TransferWithPrice: %v", err)
	}

	if got := balance(t, eng, "alice"); got != 1 {
		t.Errorf("alice balance = %d, want 1", got)
	}
	if got := balance(t, eng, "bob"); got != 1 {
		t.Errorf("bob balance = %d, want 1", got)
	}

	fees, err := eng.FeeRecords(ctx, colID, record.ListOpts{})
	if err != nil {
		t.Fatalf("FeeRecords: %v", err)
	}
	if len(fees) != 1 {
		t.Fatalf("len(fees) = %d, want 1", len(fees))
	}
	if fees[0].FeeBps != 1500 {
		t.Errorf("FeeBps = %d, want 1500", fees[0].FeeBps)
	}
	if fees[0].FeeAmount != 1650 {
		t.Errorf("FeeAmount = %d, want 1650", fees[0].FeeAmount)
	}

	// Both parties restart their cooldown clocks.
	for _, h := range []string{"alice", "bob"} {
		st, err := eng.Holding(ctx, colID, h, seatA)
		if err != nil {
			t.Fatalf("Holding(%s): %v", h, err)
		}
		if !st.LastTransferAt.Equal(*clock) {
			t.Errorf("%s LastTransferAt = %v, want %v", h, st.LastTransferAt, *clock)
		}
		if st.FirstTransferPending {
			t.Errorf("%s FirstTransferPending still set", h)
		}
	}
}

func TestTransferAboveCapRejected(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	*clock = clock.Add(holding.FirstTransferWindow)

	// Long-window cap is face + 15% = 11500.
	err := eng.TransferWithPrice(ctx, colID, "alice", "bob", seatA, 1, 12000, nil, nil)
	if !turnstile.IsPolicyViolation(err) {
		t.Fatalf("err = %v, want policy violation", err)
	}
	if !errors.Is(err, turnstile.ErrPriceExceedsCap) {
		t.Errorf("err = %v, want ErrPriceExceedsCap", err)
	}

	// Rejection leaves everything untouched.
	if got := balance(t, eng, "alice"); got != 2 {
		t.Errorf("alice balance = %d, want 2", got)
	}
	if got := balance(t, eng, "bob"); got != 0 {
		t.Errorf("bob balance = %d, want 0", got)
	}
	fees, err := eng.FeeRecords(ctx, colID, record.ListOpts{})
	if err != nil {
		t.Fatalf("FeeRecords: %v", err)
	}
	if len(fees) != 0 {
		t.Errorf("len(fees) = %d, want 0", len(fees))
	}
	if _, err := eng.Holding(ctx, colID, "bob", seatA); !errors.Is(err, turnstile.ErrNotFound) {
		t.Errorf("bob holding err = %v, want ErrNotFound", err)
	}
}

func TestFirstTransferCooldownBoundary(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	// One minute before the boundary the transfer is rejected.
	*clock = clock.Add(holding.FirstTransferWindow - time.Minute)
	err := eng.TransferWithPrice(ctx, colID, "alice", "bob", seatA, 1, 10000, nil, nil)
	if !errors.Is(err, turnstile.ErrCooldownActive) {
		t.Fatalf("before boundary: err = %v, want ErrCooldownActive", err)
	}

	// Exactly at the boundary it proceeds.
	*clock = clock.Add(time.Minute)
	if err := eng.TransferWithPrice(ctx, colID, "alice", "bob", seatA, 1, 10000, nil, nil); err != nil {
		t.Fatalf("at boundary: %v", err)
	}
}

func TestResaleCooldownAfterTransfer(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	*clock = clock.Add(holding.FirstTransferWindow)
	if err := eng.TransferWithPrice(ctx, colID, "alice", "bob", seatA, 1, 10000, nil, nil); err != nil {
		t.Fatalf("first transfer: %v", err)
	}

	// Bob acquired by transfer: his window is the shorter resale one.
	*clock = clock.Add(holding.ResaleWindow - time.Minute)
	err := eng.Transfer(ctx, colID, "bob", "carol", seatA, 1)
	if !errors.Is(err, turnstile.ErrCooldownActive) {
		t.Fatalf("inside resale window: err = %v, want ErrCooldownActive", err)
	}

	*clock = clock.Add(time.Minute)
	if err := eng.Transfer(ctx, colID, "bob", "carol", seatA, 1); err != nil {
		t.Fatalf("at resale boundary: %v", err)
	}

	// The sender's clock restarted too: alice waits the resale window now.
	st, err := eng.Holding(ctx, colID, "alice", seatA)
	if err != nil {
		t.Fatalf("Holding(alice): %v", err)
	}
	if st.Window() != holding.ResaleWindow {
		t.Errorf("alice window = %v, want %v", st.Window(), holding.ResaleWindow)
	}
}

func TestGiftUnderCooldownRejected(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	// Gifts bypass pricing but not the cooldown.
	err := eng.Transfer(ctx, colID, "alice", "bob", seatA, 1)
	if !errors.Is(err, turnstile.ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive", err)
	}

	*clock = clock.Add(holding.FirstTransferWindow)
	if err := eng.Transfer(ctx, colID, "alice", "bob", seatA, 1); err != nil {
		t.Fatalf("gift after window: %v", err)
	}

	// Gifts do not produce fee records.
	fees, err := eng.FeeRecords(ctx, colID, record.ListOpts{})
	if err != nil {
		t.Fatalf("FeeRecords: %v", err)
	}
	if len(fees) != 0 {
		t.Errorf("len(fees) = %d, want 0", len(fees))
	}
}

func TestMidWindowCapTightens(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	// 14 days before the event: mid bucket, cap face + 5% = 10500.
	*clock = clock.Add(76 * 24 * time.Hour)

	err := eng.TransferWithPrice(ctx, colID, "alice", "bob", seatA, 1, 11000, nil, nil)
	if !errors.Is(err, turnstile.ErrPriceExceedsCap) {
		t.Fatalf("err = %v, want ErrPriceExceedsCap", err)
	}

	// At the tighter cap: base 500 + mid 300 + no full markup step = 800.
	if err := eng.TransferWithPrice(ctx, colID, "alice", "bob", seatA, 1, 10500, nil, nil); err != nil {
		t.Fatalf("TransferWithPrice at cap: %v", err)
	}
	fees, _ := eng.FeeRecords(ctx, colID, record.ListOpts{})
	if len(fees) != 1 || fees[0].FeeBps != 800 {
		t.Fatalf("fees = %+v, want one record at 800 bps", fees)
	}
}

func TestEventStartedStopsResale(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	*clock = clock.Add(91 * 24 * time.Hour)

	err := eng.TransferWithPrice(ctx, colID, "alice", "bob", seatA, 1, 10000, nil, nil)
	if !errors.Is(err, turnstile.ErrEventStarted) {
		t.Fatalf("err = %v, want ErrEventStarted", err)
	}

	// Gifts still move after the event starts.
	if err := eng.Transfer(ctx, colID, "alice", "bob", seatA, 1); err != nil {
		t.Fatalf("gift after event start: %v", err)
	}
}

func TestInvalidPolicyLeavesPriorConfig(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	bad := testPolicy(clock.Add(90 * 24 * time.Hour))
	bad.TLong = 3 * 24 * time.Hour // below TMid

	err := eng.SetPolicy(ctx, owner, colID, bad)
	var verr *policy.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *policy.ValidationError", err)
	}
	if verr.Field != "t_long" {
		t.Errorf("Field = %q, want t_long", verr.Field)
	}

	// The previously installed policy is still in force.
	pol, err := eng.Policy(ctx, colID)
	if err != nil {
		t.Fatalf("Policy: %v", err)
	}
	if pol.TLong != 30*24*time.Hour {
		t.Errorf("TLong = %v, want 720h", pol.TLong)
	}
}

func TestOwnerOnlyConfiguration(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	if err := eng.SetPolicy(ctx, "mallory", colID, testPolicy(clock.Add(time.Hour))); !errors.Is(err, turnstile.ErrUnauthorized) {
		t.Errorf("SetPolicy: err = %v, want ErrUnauthorized", err)
	}
	if err := eng.SetFaceValue(ctx, "mallory", colID, seatA, 1); !errors.Is(err, turnstile.ErrUnauthorized) {
		t.Errorf("SetFaceValue: err = %v, want ErrUnauthorized", err)
	}
	if err := eng.Mint(ctx, "mallory", colID, "mallory", seatA, 100); !errors.Is(err, turnstile.ErrUnauthorized) {
		t.Errorf("Mint: err = %v, want ErrUnauthorized", err)
	}
	if err := eng.SetPricingStrategy(ctx, "mallory", colID, pricing.AllowAllName); !errors.Is(err, turnstile.ErrUnauthorized) {
		t.Errorf("SetPricingStrategy: err = %v, want ErrUnauthorized", err)
	}
}

func TestSetPricingStrategy(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	if err := eng.SetPricingStrategy(ctx, owner, colID, "no-such-strategy"); !errors.Is(err, turnstile.ErrStrategyNotFound) {
		t.Fatalf("err = %v, want ErrStrategyNotFound", err)
	}

	// Switching to allow-all lifts the cap.
	if err := eng.SetPricingStrategy(ctx, owner, colID, pricing.AllowAllName); err != nil {
		t.Fatalf("SetPricingStrategy: %v", err)
	}
	*clock = clock.Add(holding.FirstTransferWindow)
	if err := eng.TransferWithPrice(ctx, colID, "alice", "bob", seatA, 1, 99000, nil, nil); err != nil {
		t.Fatalf("TransferWithPrice under allow-all: %v", err)
	}
}

func TestUnconfiguredCollectionAllowsAll(t *testing.T) {
	eng, clock := newTestEngine(t)
	ctx := context.Background()

	col, err := eng.CreateCollection(ctx, owner, "No Policy", nil)
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := eng.Mint(ctx, owner, col.ID, "alice", seatA, 1); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	*clock = clock.Add(holding.FirstTransferWindow)

	d, err := eng.Evaluate(ctx, col.ID, pricing.Context{
		From: "alice", To: "bob", UnitTypeID: seatA, Amount: 1, TotalPrice: 50000,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed || d.FeeBps != 0 {
		t.Fatalf("decision = %+v, want allow at zero fee", d)
	}

	if err := eng.TransferWithPrice(ctx, col.ID, "alice", "bob", seatA, 1, 50000, nil, nil); err != nil {
		t.Fatalf("TransferWithPrice: %v", err)
	}
}

func TestEvaluateDoesNotMutate(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	*clock = clock.Add(holding.FirstTransferWindow)
	d, err := eng.Evaluate(ctx, colID, pricing.Context{
		From: "alice", To: "bob", UnitTypeID: seatA, Amount: 1, TotalPrice: 11000,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed || d.FeeBps != 1500 {
		t.Fatalf("decision = %+v, want allow at 1500 bps", d)
	}

	if got := balance(t, eng, "alice"); got != 2 {
		t.Errorf("alice balance = %d, want 2", got)
	}
	fees, _ := eng.FeeRecords(ctx, colID, record.ListOpts{})
	if len(fees) != 0 {
		t.Errorf("len(fees) = %d, want 0", len(fees))
	}
}

func TestInsufficientBalanceRejected(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	*clock = clock.Add(holding.FirstTransferWindow)
	err := eng.TransferWithPrice(ctx, colID, "alice", "bob", seatA, 5, 50000, nil, nil)
	if !errors.Is(err, turnstile.ErrInsufficientHold) {
		t.Fatalf("err = %v, want ErrInsufficientHold", err)
	}
	if got := balance(t, eng, "alice"); got != 2 {
		t.Errorf("alice balance = %d, want 2", got)
	}
}

func TestProofVerification(t *testing.T) {
	rejectAll := proof.VerifierFunc(func(_ context.Context, _ []byte, _ proof.Claim) (bool, error) {
		return false, nil
	})
	eng, clock := newTestEngine(t, turnstile.WithVerifier(rejectAll))
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	*clock = clock.Add(holding.FirstTransferWindow)

	// No proofs supplied: nothing to verify.
	if err := eng.TransferWithPrice(ctx, colID, "alice", "bob", seatA, 1, 10000, nil, nil); err != nil {
		t.Fatalf("TransferWithPrice without proofs: %v", err)
	}

	*clock = clock.Add(holding.ResaleWindow)
	err := eng.TransferWithPrice(ctx, colID, "alice", "carol", seatA, 1, 10000, []byte("region"), nil)
	if !errors.Is(err, turnstile.ErrProofRejected) {
		t.Fatalf("err = %v, want ErrProofRejected", err)
	}
}

func TestCheckInExactlyOnce(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	rec, err := eng.CheckIn(ctx, colID, "alice", seatA)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if rec.Holder != "alice" || rec.UnitTypeID != seatA {
		t.Fatalf("record = %+v", rec)
	}

	if _, err := eng.CheckIn(ctx, colID, "alice", seatA); !errors.Is(err, turnstile.ErrAlreadyCheckedIn) {
		t.Fatalf("second check-in: err = %v, want ErrAlreadyCheckedIn", err)
	}

	// A non-holder cannot check in.
	if _, err := eng.CheckIn(ctx, colID, "bob", seatA); !errors.Is(err, turnstile.ErrNotHolder) {
		t.Fatalf("non-holder: err = %v, want ErrNotHolder", err)
	}

	recs, err := eng.CheckInRecords(ctx, colID, record.ListOpts{})
	if err != nil {
		t.Fatalf("CheckInRecords: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("len(recs) = %d, want 1", len(recs))
	}
}

func TestExternalMintSeedsCooldown(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	// A mint that bypasses the engine still seeds holding state through
	// the ledger hook.
	if err := eng.Ledger().Mint(ctx, "dave", seatA, 1); err != nil {
		t.Fatalf("external mint: %v", err)
	}

	st, err := eng.Holding(ctx, colID, "dave", seatA)
	if err != nil {
		t.Fatalf("Holding(dave): %v", err)
	}
	if !st.FirstTransferPending {
		t.Error("FirstTransferPending not set for externally minted holding")
	}

	err = eng.Transfer(ctx, colID, "dave", "erin", seatA, 1)
	if !errors.Is(err, turnstile.ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive", err)
	}
}

func TestExternalMoveEnforcedAsGift(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	// Direct ledger move during alice's cooldown is aborted by the hook.
	err := eng.Ledger().Move(ctx, "alice", "bob", seatA, 1)
	if !errors.Is(err, turnstile.ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive", err)
	}
	if got := balance(t, eng, "alice"); got != 2 {
		t.Errorf("alice balance = %d, want 2", got)
	}

	// After the window, the direct move goes through as a gift and both
	// parties enter the resale cooldown.
	*clock = clock.Add(holding.FirstTransferWindow)
	if err := eng.Ledger().Move(ctx, "alice", "bob", seatA, 1); err != nil {
		t.Fatalf("external move: %v", err)
	}
	st, err := eng.Holding(ctx, colID, "bob", seatA)
	if err != nil {
		t.Fatalf("Holding(bob): %v", err)
	}
	if st.Window() != holding.ResaleWindow {
		t.Errorf("bob window = %v, want %v", st.Window(), holding.ResaleWindow)
	}
}

func TestCollectionNotFound(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	bogus := id.NewCollectionID()
	if err := eng.Transfer(ctx, bogus, "a", "b", seatA, 1); !turnstile.IsNotFound(err) {
		t.Errorf("Transfer: err = %v, want not found", err)
	}
	if _, err := eng.CheckIn(ctx, bogus, "a", seatA); !turnstile.IsNotFound(err) {
		t.Errorf("CheckIn: err = %v, want not found", err)
	}
}

func TestInvalidTransferInput(t *testing.T) {
	eng, clock := newTestEngine(t)
	colID := setupCollection(t, eng, clock)
	ctx := context.Background()

	cases := []struct {
		name   string
		from   string
		to     string
		amount int64
		price  int64
	}{
		{"zero amount", "alice", "bob", 0, 100},
		{"negative amount", "alice", "bob", -1, 100},
		{"negative price", "alice", "bob", 1, -100},
		{"self transfer", "alice", "alice", 1, 100},
		{"empty recipient", "alice", "", 1, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := eng.TransferWithPrice(ctx, colID, tc.from, tc.to, seatA, tc.amount, tc.price, nil, nil)
			if !errors.Is(err, turnstile.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}
