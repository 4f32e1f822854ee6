package plugin

import (
	"context"
	"testing"

	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/pricing"
)

type recordingPlugin struct {
	name      string
	inits     int
	approvals int
	rejects   int
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) OnInit(ctx context.Context, engine interface{}) error {
	p.inits++
	return nil
}

func (p *recordingPlugin) OnTransferApproved(ctx context.Context, tctx, decision interface{}) error {
	p.approvals++
	return nil
}

func (p *recordingPlugin) OnTransferRejected(ctx context.Context, tctx interface{}, reason string) error {
	p.rejects++
	return nil
}

type strategyPlugin struct{}

func (strategyPlugin) Name() string         { return "test-strategy" }
func (strategyPlugin) StrategyName() string { return "flat" }

func (strategyPlugin) Evaluate(ctx pricing.Context, pol *policy.Policy, faceValue int64) pricing.Decision {
	return pricing.Allow(100)
}

func TestRegistryDuplicateRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&recordingPlugin{name: "a"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(&recordingPlugin{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	p := &recordingPlugin{name: "rec"}
	if err := r.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx := context.Background()
	r.EmitInit(ctx, nil)
	r.EmitTransferApproved(ctx, nil, nil)
	r.EmitTransferApproved(ctx, nil, nil)
	r.EmitTransferRejected(ctx, nil, "cooldown active")

	// Events the plugin does not implement must be no-ops.
	r.EmitFeeCharged(ctx, nil)
	r.EmitCheckedIn(ctx, nil)

	if p.inits != 1 {
		t.Errorf("inits = %d, want 1", p.inits)
	}
	if p.approvals != 2 {
		t.Errorf("approvals = %d, want 2", p.approvals)
	}
	if p.rejects != 1 {
		t.Errorf("rejects = %d, want 1", p.rejects)
	}
}

func TestRegistryStrategyLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(strategyPlugin{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	s := r.Strategy("flat")
	if s == nil {
		t.Fatal("Strategy(flat) = nil")
	}
	d := s.Evaluate(pricing.Context{}, nil, 0)
	if !d.Allowed || d.FeeBps != 100 {
		t.Fatalf("Evaluate = %+v, want allow 100", d)
	}

	if r.Strategy("missing") != nil {
		t.Fatal("Strategy(missing) should be nil")
	}
}

func TestRegistryGetAndList(t *testing.T) {
	r := NewRegistry()
	p := &recordingPlugin{name: "rec"}
	if err := r.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if got := r.Get("rec"); got != p {
		t.Fatal("Get returned wrong plugin")
	}
	if got := r.Get("nope"); got != nil {
		t.Fatal("Get for unknown name should be nil")
	}
	if got := len(r.List()); got != 1 {
		t.Fatalf("len(List) = %d, want 1", got)
	}
}
