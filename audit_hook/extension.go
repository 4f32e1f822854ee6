// Package audithook bridges Turnstile lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/turnstile/plugin"
	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/pricing"
	"github.com/xraph/turnstile/record"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnCollectionCreated = (*Extension)(nil)
	_ plugin.OnPolicySet         = (*Extension)(nil)
	_ plugin.OnFaceValueSet      = (*Extension)(nil)
	_ plugin.OnStrategySelected  = (*Extension)(nil)
	_ plugin.OnTransferApproved  = (*Extension)(nil)
	_ plugin.OnTransferRejected  = (*Extension)(nil)
	_ plugin.OnFeeCharged        = (*Extension)(nil)
	_ plugin.OnUnitsMinted       = (*Extension)(nil)
	_ plugin.OnCheckedIn         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Turnstile lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Configuration hooks
// ──────────────────────────────────────────────────

// OnCollectionCreated implements plugin.OnCollectionCreated.
func (e *Extension) OnCollectionCreated(ctx context.Context, col interface{}) error {
	var colID, owner string
	if c, ok := col.(*policy.Collection); ok {
		colID = c.ID.String()
		owner = c.Owner
	}
	return e.record(ctx, ActionCollectionCreated, SeverityInfo, OutcomeSuccess,
		ResourceCollection, colID, CategoryConfiguration, nil,
		"owner", owner,
	)
}

// OnPolicySet implements plugin.OnPolicySet.
func (e *Extension) OnPolicySet(ctx context.Context, collectionID string, pol interface{}) error {
	meta := []any{"collection_id", collectionID}
	if p, ok := pol.(*policy.Policy); ok {
		meta = append(meta,
			"event_at", p.EventAt,
			"base_fee_bps", int64(p.BaseFeeBps),
		)
	}
	return e.record(ctx, ActionPolicySet, SeverityInfo, OutcomeSuccess,
		ResourcePolicy, collectionID, CategoryConfiguration, nil,
		meta...,
	)
}

// OnFaceValueSet implements plugin.OnFaceValueSet.
func (e *Extension) OnFaceValueSet(ctx context.Context, collectionID string, unitTypeID uint64, price int64) error {
	return e.record(ctx, ActionFaceValueSet, SeverityInfo, OutcomeSuccess,
		ResourceCollection, collectionID, CategoryConfiguration, nil,
		"unit_type_id", unitTypeID,
		"face_value", price,
	)
}

// OnStrategySelected implements plugin.OnStrategySelected.
func (e *Extension) OnStrategySelected(ctx context.Context, collectionID, strategy string) error {
	return e.record(ctx, ActionStrategySelected, SeverityInfo, OutcomeSuccess,
		ResourceCollection, collectionID, CategoryConfiguration, nil,
		"strategy", strategy,
	)
}

// ──────────────────────────────────────────────────
// Transfer hooks
// ──────────────────────────────────────────────────

// OnTransferApproved implements plugin.OnTransferApproved.
func (e *Extension) OnTransferApproved(ctx context.Context, tctx, decision interface{}) error {
	meta := transferMeta(tctx)
	if d, ok := decision.(pricing.Decision); ok {
		meta = append(meta, "fee_bps", int64(d.FeeBps))
	}
	return e.record(ctx, ActionTransferApproved, SeverityInfo, OutcomeSuccess,
		ResourceTransfer, "", CategoryTransfer, nil,
		meta...,
	)
}

// OnTransferRejected implements plugin.OnTransferRejected.
func (e *Extension) OnTransferRejected(ctx context.Context, tctx interface{}, reason string) error {
	meta := append(transferMeta(tctx), "reject_reason", reason)
	return e.record(ctx, ActionTransferRejected, SeverityWarning, OutcomeFailure,
		ResourceTransfer, "", CategoryTransfer, nil,
		meta...,
	)
}

// OnFeeCharged implements plugin.OnFeeCharged.
func (e *Extension) OnFeeCharged(ctx context.Context, rec interface{}) error {
	var feeID string
	meta := []any{}
	if fee, ok := rec.(*record.Fee); ok {
		feeID = fee.ID.String()
		meta = append(meta,
			"collection_id", fee.Collection.String(),
			"price", fee.Price,
			"fee_bps", int64(fee.FeeBps),
			"fee_amount", fee.FeeAmount,
		)
	}
	return e.record(ctx, ActionFeeCharged, SeverityInfo, OutcomeSuccess,
		ResourceFee, feeID, CategorySettlement, nil,
		meta...,
	)
}

// ──────────────────────────────────────────────────
// Issuance and admission hooks
// ──────────────────────────────────────────────────

// OnUnitsMinted implements plugin.OnUnitsMinted.
func (e *Extension) OnUnitsMinted(ctx context.Context, collectionID, to string, unitTypeID uint64, amount int64) error {
	return e.record(ctx, ActionUnitsMinted, SeverityInfo, OutcomeSuccess,
		ResourceHolding, collectionID, CategoryIssuance, nil,
		"to", to,
		"unit_type_id", unitTypeID,
		"amount", amount,
	)
}

// OnCheckedIn implements plugin.OnCheckedIn.
func (e *Extension) OnCheckedIn(ctx context.Context, rec interface{}) error {
	var checkInID string
	meta := []any{}
	if ci, ok := rec.(*record.CheckIn); ok {
		checkInID = ci.ID.String()
		meta = append(meta,
			"collection_id", ci.Collection.String(),
			"holder", ci.Holder,
			"unit_type_id", ci.UnitTypeID,
		)
	}
	return e.record(ctx, ActionCheckedIn, SeverityInfo, OutcomeSuccess,
		ResourceCheckIn, checkInID, CategoryAdmission, nil,
		meta...,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// transferMeta extracts audit metadata from a pricing context.
func transferMeta(tctx interface{}) []any {
	pc, ok := tctx.(pricing.Context)
	if !ok {
		return nil
	}
	return []any{
		"from", pc.From,
		"to", pc.To,
		"unit_type_id", pc.UnitTypeID,
		"amount", pc.Amount,
		"price", pc.TotalPrice,
		"gift", pc.Gift(),
	}
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
