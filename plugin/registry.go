package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/turnstile/pricing"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onCollectionCreated []OnCollectionCreated
	onPolicySet         []OnPolicySet
	onFaceValueSet      []OnFaceValueSet
	onStrategySelected  []OnStrategySelected
	onTransferApproved  []OnTransferApproved
	onTransferRejected  []OnTransferRejected
	onFeeCharged        []OnFeeCharged
	onUnitsMinted       []OnUnitsMinted
	onCheckedIn         []OnCheckedIn
	strategies          map[string]pricing.Strategy
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:     slog.Default(),
		strategies: make(map[string]pricing.Strategy),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	var interfaces []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		interfaces = append(interfaces, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		interfaces = append(interfaces, "OnShutdown")
	}
	if v, ok := p.(OnCollectionCreated); ok {
		r.onCollectionCreated = append(r.onCollectionCreated, v)
		interfaces = append(interfaces, "OnCollectionCreated")
	}
	if v, ok := p.(OnPolicySet); ok {
		r.onPolicySet = append(r.onPolicySet, v)
		interfaces = append(interfaces, "OnPolicySet")
	}
	if v, ok := p.(OnFaceValueSet); ok {
		r.onFaceValueSet = append(r.onFaceValueSet, v)
		interfaces = append(interfaces, "OnFaceValueSet")
	}
	if v, ok := p.(OnStrategySelected); ok {
		r.onStrategySelected = append(r.onStrategySelected, v)
		interfaces = append(interfaces, "OnStrategySelected")
	}
	if v, ok := p.(OnTransferApproved); ok {
		r.onTransferApproved = append(r.onTransferApproved, v)
		interfaces = append(interfaces, "OnTransferApproved")
	}
	if v, ok := p.(OnTransferRejected); ok {
		r.onTransferRejected = append(r.onTransferRejected, v)
		interfaces = append(interfaces, "OnTransferRejected")
	}
	if v, ok := p.(OnFeeCharged); ok {
		r.onFeeCharged = append(r.onFeeCharged, v)
		interfaces = append(interfaces, "OnFeeCharged")
	}
	if v, ok := p.(OnUnitsMinted); ok {
		r.onUnitsMinted = append(r.onUnitsMinted, v)
		interfaces = append(interfaces, "OnUnitsMinted")
	}
	if v, ok := p.(OnCheckedIn); ok {
		r.onCheckedIn = append(r.onCheckedIn, v)
		interfaces = append(interfaces, "OnCheckedIn")
	}
	if v, ok := p.(PricingStrategy); ok {
		r.strategies[v.StrategyName()] = v
		interfaces = append(interfaces, "PricingStrategy")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", interfaces,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Strategy returns a registered pricing strategy by name, or nil.
func (r *Registry) Strategy(name string) pricing.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.strategies[name]
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCollectionCreated emits a collection created event.
func (r *Registry) EmitCollectionCreated(ctx context.Context, col interface{}) {
	r.mu.RLock()
	plugins := r.onCollectionCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCollectionCreated(ctx, col)
		}); err != nil {
			r.logger.Warn("plugin OnCollectionCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPolicySet emits a policy set event.
func (r *Registry) EmitPolicySet(ctx context.Context, collectionID string, pol interface{}) {
	r.mu.RLock()
	plugins := r.onPolicySet
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPolicySet(ctx, collectionID, pol)
		}); err != nil {
			r.logger.Warn("plugin OnPolicySet failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitFaceValueSet emits a face value set event.
func (r *Registry) EmitFaceValueSet(ctx context.Context, collectionID string, unitTypeID uint64, price int64) {
	r.mu.RLock()
	plugins := r.onFaceValueSet
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFaceValueSet(ctx, collectionID, unitTypeID, price)
		}); err != nil {
			r.logger.Warn("plugin OnFaceValueSet failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStrategySelected emits a strategy selected event.
func (r *Registry) EmitStrategySelected(ctx context.Context, collectionID, strategy string) {
	r.mu.RLock()
	plugins := r.onStrategySelected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStrategySelected(ctx, collectionID, strategy)
		}); err != nil {
			r.logger.Warn("plugin OnStrategySelected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransferApproved emits a transfer approved event.
func (r *Registry) EmitTransferApproved(ctx context.Context, tctx, decision interface{}) {
	r.mu.RLock()
	plugins := r.onTransferApproved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransferApproved(ctx, tctx, decision)
		}); err != nil {
			r.logger.Warn("plugin OnTransferApproved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransferRejected emits a transfer rejected event.
func (r *Registry) EmitTransferRejected(ctx context.Context, tctx interface{}, reason string) {
	r.mu.RLock()
	plugins := r.onTransferRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransferRejected(ctx, tctx, reason)
		}); err != nil {
			r.logger.Warn("plugin OnTransferRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitFeeCharged emits a fee charged event.
func (r *Registry) EmitFeeCharged(ctx context.Context, rec interface{}) {
	r.mu.RLock()
	plugins := r.onFeeCharged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFeeCharged(ctx, rec)
		}); err != nil {
			r.logger.Warn("plugin OnFeeCharged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUnitsMinted emits a units minted event.
func (r *Registry) EmitUnitsMinted(ctx context.Context, collectionID, to string, unitTypeID uint64, amount int64) {
	r.mu.RLock()
	plugins := r.onUnitsMinted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUnitsMinted(ctx, collectionID, to, unitTypeID, amount)
		}); err != nil {
			r.logger.Warn("plugin OnUnitsMinted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCheckedIn emits a checked-in event.
func (r *Registry) EmitCheckedIn(ctx context.Context, rec interface{}) {
	r.mu.RLock()
	plugins := r.onCheckedIn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCheckedIn(ctx, rec)
		}); err != nil {
			r.logger.Warn("plugin OnCheckedIn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the enforcement pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
