// Package observability provides a metrics extension for Turnstile that
// records lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/turnstile/plugin"
	"github.com/xraph/turnstile/pricing"
	"github.com/xraph/turnstile/record"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnCollectionCreated = (*MetricsExtension)(nil)
	_ plugin.OnPolicySet         = (*MetricsExtension)(nil)
	_ plugin.OnFaceValueSet      = (*MetricsExtension)(nil)
	_ plugin.OnStrategySelected  = (*MetricsExtension)(nil)
	_ plugin.OnTransferApproved  = (*MetricsExtension)(nil)
	_ plugin.OnTransferRejected  = (*MetricsExtension)(nil)
	_ plugin.OnFeeCharged        = (*MetricsExtension)(nil)
	_ plugin.OnUnitsMinted       = (*MetricsExtension)(nil)
	_ plugin.OnCheckedIn         = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Turnstile plugin to automatically track enforcement metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Configuration metrics
	CollectionCreated Counter
	PolicySet         Counter
	FaceValueSet      Counter
	StrategySelected  Counter

	// Transfer metrics
	TransferApproved Counter
	TransferRejected Counter
	TransferGifts    Counter
	TransferFeeBps   Histogram
	TransferPrice    Histogram

	// Fee metrics
	FeeCharged Counter
	FeeAmount  Histogram

	// Issuance metrics
	UnitsMinted      Counter
	UnitsMintedTotal Counter

	// Check-in metrics
	CheckIns Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Configuration metrics
		CollectionCreated: factory.Counter("turnstile.collection.created"),
		PolicySet:         factory.Counter("turnstile.policy.set"),
		FaceValueSet:      factory.Counter("turnstile.facevalue.set"),
		StrategySelected:  factory.Counter("turnstile.strategy.selected"),

		// Transfer metrics
		TransferApproved: factory.Counter("turnstile.transfer.approved"),
		TransferRejected: factory.Counter("turnstile.transfer.rejected"),
		TransferGifts:    factory.Counter("turnstile.transfer.gifts"),
		TransferFeeBps:   factory.Histogram("turnstile.transfer.fee_bps"),
		TransferPrice:    factory.Histogram("turnstile.transfer.price"),

		// Fee metrics
		FeeCharged: factory.Counter("turnstile.fee.charged"),
		FeeAmount:  factory.Histogram("turnstile.fee.amount"),

		// Issuance metrics
		UnitsMinted:      factory.Counter("turnstile.mint.operations"),
		UnitsMintedTotal: factory.Counter("turnstile.mint.units"),

		// Check-in metrics
		CheckIns: factory.Counter("turnstile.checkin.recorded"),

		// Error metrics
		StoreErrors:  factory.Counter("turnstile.store.errors"),
		PluginErrors: factory.Counter("turnstile.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Configuration hooks
// ──────────────────────────────────────────────────

// OnCollectionCreated implements plugin.OnCollectionCreated.
func (m *MetricsExtension) OnCollectionCreated(_ context.Context, _ interface{}) error {
	m.CollectionCreated.Inc()
	return nil
}

// OnPolicySet implements plugin.OnPolicySet.
func (m *MetricsExtension) OnPolicySet(_ context.Context, _ string, _ interface{}) error {
	m.PolicySet.Inc()
	return nil
}

// OnFaceValueSet implements plugin.OnFaceValueSet.
func (m *MetricsExtension) OnFaceValueSet(_ context.Context, _ string, _ uint64, _ int64) error {
	m.FaceValueSet.Inc()
	return nil
}

// OnStrategySelected implements plugin.OnStrategySelected.
func (m *MetricsExtension) OnStrategySelected(_ context.Context, _, _ string) error {
	m.StrategySelected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Transfer hooks
// ──────────────────────────────────────────────────

// OnTransferApproved implements plugin.OnTransferApproved.
func (m *MetricsExtension) OnTransferApproved(_ context.Context, tctx, decision interface{}) error {
	m.TransferApproved.Inc()
	if pc, ok := tctx.(pricing.Context); ok {
		if pc.Gift() {
			m.TransferGifts.Inc()
		} else {
			m.TransferPrice.Observe(float64(pc.TotalPrice))
		}
	}
	if d, ok := decision.(pricing.Decision); ok {
		m.TransferFeeBps.Observe(float64(d.FeeBps))
	}
	return nil
}

// OnTransferRejected implements plugin.OnTransferRejected.
func (m *MetricsExtension) OnTransferRejected(_ context.Context, _ interface{}, _ string) error {
	m.TransferRejected.Inc()
	return nil
}

// OnFeeCharged implements plugin.OnFeeCharged.
func (m *MetricsExtension) OnFeeCharged(_ context.Context, rec interface{}) error {
	m.FeeCharged.Inc()
	if fee, ok := rec.(*record.Fee); ok {
		m.FeeAmount.Observe(float64(fee.FeeAmount))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Issuance and check-in hooks
// ──────────────────────────────────────────────────

// OnUnitsMinted implements plugin.OnUnitsMinted.
func (m *MetricsExtension) OnUnitsMinted(_ context.Context, _, _ string, _ uint64, amount int64) error {
	m.UnitsMinted.Inc()
	m.UnitsMintedTotal.Add(float64(amount))
	return nil
}

// OnCheckedIn implements plugin.OnCheckedIn.
func (m *MetricsExtension) OnCheckedIn(_ context.Context, _ interface{}) error {
	m.CheckIns.Inc()
	return nil
}
