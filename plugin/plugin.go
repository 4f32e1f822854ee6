// Package plugin provides an extensible plugin system for Turnstile.
// Plugins can hook into enforcement lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/turnstile/pricing"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Configuration hooks
// ──────────────────────────────────────────────────

// OnCollectionCreated is called when a collection is registered.
type OnCollectionCreated interface {
	Plugin
	OnCollectionCreated(ctx context.Context, col interface{}) error
}

// OnPolicySet is called when a collection's resale policy is replaced.
type OnPolicySet interface {
	Plugin
	OnPolicySet(ctx context.Context, collectionID string, pol interface{}) error
}

// OnFaceValueSet is called when a unit type's face value is set.
type OnFaceValueSet interface {
	Plugin
	OnFaceValueSet(ctx context.Context, collectionID string, unitTypeID uint64, price int64) error
}

// OnStrategySelected is called when a collection's pricing strategy changes.
type OnStrategySelected interface {
	Plugin
	OnStrategySelected(ctx context.Context, collectionID, strategy string) error
}

// ──────────────────────────────────────────────────
// Transfer lifecycle hooks
// ──────────────────────────────────────────────────

// OnTransferApproved is called after a transfer clears cooldown and pricing
// and its ledger movement has been applied. tctx is a pricing.Context;
// decision is a pricing.Decision.
type OnTransferApproved interface {
	Plugin
	OnTransferApproved(ctx context.Context, tctx, decision interface{}) error
}

// OnTransferRejected is called when a transfer attempt is rejected, whether
// by cooldown or by pricing. tctx is a pricing.Context.
type OnTransferRejected interface {
	Plugin
	OnTransferRejected(ctx context.Context, tctx interface{}, reason string) error
}

// OnFeeCharged is called when a fee record is emitted. rec is a *record.Fee.
type OnFeeCharged interface {
	Plugin
	OnFeeCharged(ctx context.Context, rec interface{}) error
}

// OnUnitsMinted is called after units are issued through the engine.
type OnUnitsMinted interface {
	Plugin
	OnUnitsMinted(ctx context.Context, collectionID, to string, unitTypeID uint64, amount int64) error
}

// OnCheckedIn is called when a holding is used. rec is a *record.CheckIn.
type OnCheckedIn interface {
	Plugin
	OnCheckedIn(ctx context.Context, rec interface{}) error
}

// ──────────────────────────────────────────────────
// Pricing strategies
// ──────────────────────────────────────────────────

// PricingStrategy provides a custom transfer pricing strategy. A plugin
// implementing it is registered under its StrategyName and becomes
// selectable per collection via the engine's strategy selection.
type PricingStrategy interface {
	Plugin
	pricing.Strategy
}
