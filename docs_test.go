package turnstile_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/turnstile"
	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/store/memory"
	"github.com/xraph/turnstile/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize the engine
		eng := turnstile.New(store,
			turnstile.WithLogger(slog.Default()),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Register a collection
		col, err := eng.CreateCollection(ctx, "organiser", "Main Stage", nil)
		if err != nil {
			t.Fatal(err)
		}

		// Configure the resale policy
		err = eng.SetPolicy(ctx, "organiser", col.ID, &policy.Policy{
			EventAt:    time.Now().Add(90 * 24 * time.Hour),
			BaseFeeBps: 500,
			TLong:      30 * 24 * time.Hour,
			TMid:       7 * 24 * time.Hour,
			CapLongBps: 1500,
			CapMidBps:  500,
			FeeLongBps: 800,
			FeeMidBps:  300,
			MaxFeeBps:  2500,
		})
		if err != nil {
			t.Fatal(err)
		}

		// Record face value and mint units to a buyer
		const seatA uint64 = 1
		if err := eng.SetFaceValue(ctx, "organiser", col.ID, seatA, 10000); err != nil {
			t.Fatal(err)
		}
		if err := eng.Mint(ctx, "organiser", col.ID, "alice", seatA, 2); err != nil {
			t.Fatal(err)
		}

		// A resale right after mint is still inside the cooldown
		err = eng.TransferWithPrice(ctx, col.ID, "alice", "bob", seatA, 1, 11000, nil, nil)
		if turnstile.IsPolicyViolation(err) {
			log.Printf("transfer rejected: %v\n", err)
		}
	})

	// Test basis-point type examples
	t.Run("BpsExamples", func(t *testing.T) {
		// Constructors
		_ = types.Percent(15)  // 1500 bps
		_ = types.Bps(500)     // 5%
		_ = types.Full         // 10000 bps, 100%

		// Arithmetic, truncating
		fee := types.Bps(1500)
		_ = fee.ApplyTo(11000)          // 1650
		_ = fee.Add(types.Bps(200))     // 1700 bps
		_ = fee.Cap(types.Bps(1000))    // 1000 bps

		// Formatting
		_ = fee.String() // "15.00%"
	})
}
