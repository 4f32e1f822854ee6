// Package asset defines the interface Turnstile consumes from the underlying
// multi-unit ownership ledger, plus a reference in-memory implementation.
//
// The ledger owns balance bookkeeping and atomic unit movement; Turnstile
// never touches balances directly. It observes the ledger through a mutation
// hook invoked around every move and mint, which is how state for holdings
// acquired outside the engine (mints, direct ledger moves) gets seeded.
package asset

import "context"

// Mutation describes one balance movement about to be applied. A mint is a
// Mutation with an empty From.
type Mutation struct {
	From       string
	To         string
	UnitTypeID uint64
	Amount     int64
}

// Mint reports whether the mutation issues new units.
func (m Mutation) Mint() bool { return m.From == "" }

// Hook is invoked by the ledger before each mutation is applied. Returning
// an error aborts the mutation with no balance change.
type Hook interface {
	OnMutation(ctx context.Context, m Mutation) error
}

// HookFunc adapts a plain function to a Hook.
type HookFunc func(ctx context.Context, m Mutation) error

// OnMutation implements Hook.
func (f HookFunc) OnMutation(ctx context.Context, m Mutation) error { return f(ctx, m) }

// Ledger is the balance storage and movement primitive Turnstile forwards
// approved transfers to. Implementations must be synchronous: a returned nil
// means the mutation is fully applied, a returned error means nothing
// changed.
type Ledger interface {
	// BalanceOf returns the holder's balance for a unit type.
	BalanceOf(ctx context.Context, holder string, unitTypeID uint64) (int64, error)

	// Move transfers amount units atomically. Fails without effect when
	// the sender's balance is insufficient.
	Move(ctx context.Context, from, to string, unitTypeID uint64, amount int64) error

	// Mint issues amount new units to a holder atomically.
	Mint(ctx context.Context, to string, unitTypeID uint64, amount int64) error

	// SetHook installs the mutation hook. At most one hook is supported;
	// installing replaces any previous hook.
	SetHook(h Hook)
}
