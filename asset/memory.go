package asset

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Ledger errors.
var (
	ErrInsufficientBalance = errors.New("asset: insufficient balance")
	ErrInvalidAmount       = errors.New("asset: amount must be positive")
)

// MemoryLedger is the reference in-memory Ledger. It backs tests and
// embedded deployments; production setups supply their own implementation.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[balanceKey]int64
	hook     Hook
}

type balanceKey struct {
	holder     string
	unitTypeID uint64
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[balanceKey]int64)}
}

// SetHook implements Ledger.
func (l *MemoryLedger) SetHook(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hook = h
}

// BalanceOf implements Ledger.
func (l *MemoryLedger) BalanceOf(_ context.Context, holder string, unitTypeID uint64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{holder, unitTypeID}], nil
}

// Move implements Ledger. The hook runs before the balance change; a hook
// error aborts the move entirely.
func (l *MemoryLedger) Move(ctx context.Context, from, to string, unitTypeID uint64, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromKey := balanceKey{from, unitTypeID}
	if l.balances[fromKey] < amount {
		return fmt.Errorf("%w: %s has %d of unit type %d, need %d",
			ErrInsufficientBalance, from, l.balances[fromKey], unitTypeID, amount)
	}

	if l.hook != nil {
		if err := l.hook.OnMutation(ctx, Mutation{From: from, To: to, UnitTypeID: unitTypeID, Amount: amount}); err != nil {
			return err
		}
	}

	l.balances[fromKey] -= amount
	l.balances[balanceKey{to, unitTypeID}] += amount
	return nil
}

// Mint implements Ledger.
func (l *MemoryLedger) Mint(ctx context.Context, to string, unitTypeID uint64, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hook != nil {
		if err := l.hook.OnMutation(ctx, Mutation{To: to, UnitTypeID: unitTypeID, Amount: amount}); err != nil {
			return err
		}
	}

	l.balances[balanceKey{to, unitTypeID}] += amount
	return nil
}
