// Package turnstile provides a composable transfer enforcement engine for
// ticketed assets in Go applications.
//
// Turnstile is designed as a library, not a service. It sits between your
// application and a multi-unit asset ledger and decides whether each resale
// transfer may proceed. It provides:
//
//   - Per-collection resale policies with time-to-event fee tiers
//   - Price caps relative to face value, tightening as the event nears
//   - Markup surcharges that step with the seller's margin
//   - Transfer cooldowns after mint and after every resale
//   - One-shot check-in tracking for used holdings
//   - Pluggable pricing strategies and lifecycle event plugins
//
// # Quick Start
//
// Create an engine instance with your preferred store:
//
//	import (
//	    "github.com/xraph/turnstile"
//	    "github.com/xraph/turnstile/store/memory"
//	)
//
//	eng := turnstile.New(memory.New())
//
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Collections group the unit types of one event and anchor authorization:
// only the collection owner may configure it.
//
//	col, err := eng.CreateCollection(ctx, "organiser", "Main Stage", nil)
//
// Policies set the anti-scalping parameters:
//
//	err = eng.SetPolicy(ctx, "organiser", col.ID, &policy.Policy{
//	    EventAt:    eventStart,
//	    BaseFeeBps: 500,
//	    TLong:      30 * 24 * time.Hour,
//	    TMid:       7 * 24 * time.Hour,
//	    CapLongBps: 1500,
//	    CapMidBps:  500,
//	    FeeLongBps: 800,
//	    FeeMidBps:  300,
//	    MaxFeeBps:  2500,
//	})
//
// Transfers run the enforcement pipeline; a rejection changes nothing:
//
//	err = eng.TransferWithPrice(ctx, col.ID, "alice", "bob", seatA, 1, 11000, nil, nil)
//	if turnstile.IsPolicyViolation(err) {
//	    // rejected: cooldown, cap, or event already started
//	}
//
// # Storage Backends
//
// Turnstile supports multiple storage backends through a unified interface:
//
//   - store/memory: in-memory for tests and prototypes
//   - store/sqlite: SQLite via Grove ORM
//   - store/postgres: PostgreSQL via Grove ORM
//   - store/mongo: MongoDB via Grove ORM
//
// # Framework Integration
//
// The extension package integrates with Forge applications and exposes the
// engine through vessel dependency injection.
package turnstile
