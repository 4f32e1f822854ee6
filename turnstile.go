package turnstile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/turnstile/asset"
	"github.com/xraph/turnstile/holding"
	"github.com/xraph/turnstile/id"
	"github.com/xraph/turnstile/plugin"
	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/pricing"
	"github.com/xraph/turnstile/proof"
	"github.com/xraph/turnstile/record"
	"github.com/xraph/turnstile/store"
	"github.com/xraph/turnstile/types"
)

// Engine is the transfer enforcement engine. It sits between callers and
// the asset ledger: every transfer is checked against the collection's
// resale policy, cooldown state, and proofs before the ledger moves units.
type Engine struct {
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	ledger   asset.Ledger
	verifier proof.Verifier
	clock    func() time.Time

	defaultStrategy pricing.Strategy
	skipMigrate     bool

	// mu serializes mutating operations so the read-check-move-write
	// sequence of a transfer is atomic with respect to other transfers.
	mu sync.Mutex

	// unitCols maps unit types to their collection so ledger mutations
	// initiated outside the engine can be attributed and enforced.
	unitCols map[uint64]id.CollectionID

	// inFlight marks ledger mutations the engine itself initiated; the
	// mutation hook ignores those to avoid double handling.
	inFlight atomic.Bool
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		ledger:          asset.NewMemoryLedger(),
		verifier:        proof.StubVerifier{},
		clock:           time.Now,
		defaultStrategy: pricing.Tiered{},
		unitCols:        make(map[uint64]id.CollectionID),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithLedger sets the asset ledger the engine enforces over.
func WithLedger(l asset.Ledger) Option {
	return func(e *Engine) {
		e.ledger = l
	}
}

// WithVerifier sets the proof verifier.
func WithVerifier(v proof.Verifier) Option {
	return func(e *Engine) {
		e.verifier = v
	}
}

// WithClock sets the time source. Tests use this to pin time.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithDefaultStrategy sets the pricing strategy used by collections that
// have not selected one.
func WithDefaultStrategy(s pricing.Strategy) Option {
	return func(e *Engine) {
		e.defaultStrategy = s
	}
}

// WithoutMigration skips store migration on Start. Use when migrations are
// run out of band.
func WithoutMigration() Option {
	return func(e *Engine) {
		e.skipMigrate = true
	}
}

// Start migrates the store, hooks into the ledger, and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	e.ledger.SetHook(asset.HookFunc(e.onMutation))

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("turnstile started",
		"plugins", e.plugins.Count(),
		"default_strategy", e.defaultStrategy.StrategyName(),
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Ledger returns the asset ledger the engine enforces over.
func (e *Engine) Ledger() asset.Ledger { return e.ledger }

// ──────────────────────────────────────────────────
// Collection Management
// ──────────────────────────────────────────────────

// CreateCollection registers a collection under the given owner. Only the
// owner may later configure its policy, face values, and strategy.
func (e *Engine) CreateCollection(ctx context.Context, owner, name string, metadata map[string]string) (*policy.Collection, error) {
	if owner == "" {
		return nil, ErrInvalidInput
	}

	c := &policy.Collection{
		Entity:   types.EntityAt(e.clock()),
		ID:       id.NewCollectionID(),
		Name:     name,
		Owner:    owner,
		Metadata: metadata,
	}

	if err := e.store.CreateCollection(ctx, c); err != nil {
		return nil, err
	}

	e.plugins.EmitCollectionCreated(ctx, c)
	return c, nil
}

// Collection retrieves a collection by ID.
func (e *Engine) Collection(ctx context.Context, colID id.CollectionID) (*policy.Collection, error) {
	return e.store.GetCollection(ctx, colID)
}

// Collections lists collections, optionally filtered by owner.
func (e *Engine) Collections(ctx context.Context, owner string) ([]*policy.Collection, error) {
	return e.store.ListCollections(ctx, owner)
}

// ──────────────────────────────────────────────────
// Policy Configuration
// ──────────────────────────────────────────────────

// SetPolicy installs or replaces the resale policy for a collection. The
// actor must be the collection owner. A policy that fails validation leaves
// any previously installed policy untouched.
func (e *Engine) SetPolicy(ctx context.Context, actor string, colID id.CollectionID, p *policy.Policy) error {
	c, err := e.store.GetCollection(ctx, colID)
	if err != nil {
		return err
	}
	if c.Owner != actor {
		return ErrUnauthorized
	}

	now := e.clock()
	if err := p.Validate(now); err != nil {
		return err
	}
	p.Entity = types.EntityAt(now)

	if err := e.store.SetPolicy(ctx, colID, p); err != nil {
		return err
	}

	e.logger.Info("policy set",
		"collection", colID.String(),
		"event_at", p.EventAt,
	)
	e.plugins.EmitPolicySet(ctx, colID.String(), p)
	return nil
}

// Policy retrieves the policy for a collection.
func (e *Engine) Policy(ctx context.Context, colID id.CollectionID) (*policy.Policy, error) {
	return e.store.GetPolicy(ctx, colID)
}

// SetFaceValue records the original sale price of a unit type. The actor
// must be the collection owner.
func (e *Engine) SetFaceValue(ctx context.Context, actor string, colID id.CollectionID, unitTypeID uint64, price int64) error {
	c, err := e.store.GetCollection(ctx, colID)
	if err != nil {
		return err
	}
	if c.Owner != actor {
		return ErrUnauthorized
	}
	if price < 0 {
		return ErrInvalidInput
	}

	if err := e.store.SetFaceValue(ctx, colID, unitTypeID, price); err != nil {
		return err
	}

	e.mu.Lock()
	e.unitCols[unitTypeID] = colID
	e.mu.Unlock()

	e.plugins.EmitFaceValueSet(ctx, colID.String(), unitTypeID, price)
	return nil
}

// FaceValue retrieves the face value of a unit type.
func (e *Engine) FaceValue(ctx context.Context, colID id.CollectionID, unitTypeID uint64) (int64, error) {
	return e.store.GetFaceValue(ctx, colID, unitTypeID)
}

// SetPricingStrategy selects the pricing strategy for a collection by name.
// The name must resolve to a built-in strategy or one contributed by a
// registered plugin.
func (e *Engine) SetPricingStrategy(ctx context.Context, actor string, colID id.CollectionID, name string) error {
	c, err := e.store.GetCollection(ctx, colID)
	if err != nil {
		return err
	}
	if c.Owner != actor {
		return ErrUnauthorized
	}
	if e.resolveStrategy(name) == nil {
		return fmt.Errorf("%w: %s", ErrStrategyNotFound, name)
	}

	c.Strategy = name
	c.TouchAt(e.clock())

	if err := e.store.UpdateCollection(ctx, c); err != nil {
		return err
	}

	e.plugins.EmitStrategySelected(ctx, colID.String(), name)
	return nil
}

// ──────────────────────────────────────────────────
// Minting
// ──────────────────────────────────────────────────

// Mint issues new units to a holder. The actor must be the collection
// owner. The recipient's holding starts in the first-transfer cooldown.
func (e *Engine) Mint(ctx context.Context, actor string, colID id.CollectionID, to string, unitTypeID uint64, amount int64) error {
	c, err := e.store.GetCollection(ctx, colID)
	if err != nil {
		return err
	}
	if c.Owner != actor {
		return ErrUnauthorized
	}
	if to == "" || amount <= 0 {
		return ErrInvalidInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.inFlight.Store(true)
	err = e.ledger.Mint(ctx, to, unitTypeID, amount)
	e.inFlight.Store(false)
	if err != nil {
		return err
	}

	now := e.clock()
	st, err := e.store.GetHolding(ctx, colID, to, unitTypeID)
	switch {
	case err == nil:
		// Additional mints restart the cooldown clock.
		st.LastTransferAt = now
		st.UpdatedAt = now
	case errors.Is(err, ErrNotFound):
		st = holding.NewMinted(colID, to, unitTypeID, now)
	default:
		return err
	}
	if err := e.store.PutHolding(ctx, colID, st); err != nil {
		return err
	}

	e.unitCols[unitTypeID] = colID

	e.plugins.EmitUnitsMinted(ctx, colID.String(), to, unitTypeID, amount)
	return nil
}

// ──────────────────────────────────────────────────
// Transfer Authorization
// ──────────────────────────────────────────────────

// Evaluate quotes the decision for a prospective transfer without moving
// units or changing state.
func (e *Engine) Evaluate(ctx context.Context, colID id.CollectionID, pctx pricing.Context) (pricing.Decision, error) {
	c, err := e.store.GetCollection(ctx, colID)
	if err != nil {
		return pricing.Decision{}, err
	}
	if pctx.Amount <= 0 {
		return pricing.Decision{}, ErrInvalidInput
	}
	if pctx.Now.IsZero() {
		pctx.Now = e.clock()
	}

	pol, face, err := e.pricingInputs(ctx, colID, pctx.UnitTypeID)
	if err != nil {
		return pricing.Decision{}, err
	}

	return e.strategyFor(c).Evaluate(pctx, pol, face), nil
}

// Transfer moves units as a gift. Cooldown rules still apply; pricing
// rules do not, since no money changes hands.
func (e *Engine) Transfer(ctx context.Context, colID id.CollectionID, from, to string, unitTypeID uint64, amount int64) error {
	return e.TransferWithPrice(ctx, colID, from, to, unitTypeID, amount, 0, nil, nil)
}

// TransferWithPrice authorizes and executes a priced transfer. The full
// enforcement pipeline runs: cooldown, proof verification, and the
// collection's pricing strategy. On approval the units move, both parties'
// cooldown clocks restart, and a fee record is appended for priced sales.
// A rejection leaves every piece of state untouched.
func (e *Engine) TransferWithPrice(ctx context.Context, colID id.CollectionID, from, to string, unitTypeID uint64, amount, price int64, regionProof, ageProof []byte) error {
	c, err := e.store.GetCollection(ctx, colID)
	if err != nil {
		return err
	}
	if from == "" || to == "" || from == to || amount <= 0 || price < 0 {
		return ErrInvalidInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	pctx := pricing.Context{
		From:        from,
		To:          to,
		UnitTypeID:  unitTypeID,
		Amount:      amount,
		TotalPrice:  price,
		Now:         now,
		RegionProof: regionProof,
		AgeProof:    ageProof,
	}

	// Cooldown check precedes everything else, gifts included.
	sender, err := e.store.GetHolding(ctx, colID, from, unitTypeID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if sender != nil {
		if remaining := sender.CooldownRemaining(now); remaining > 0 {
			return e.reject(ctx, pctx, NewPolicyViolation(ErrCooldownActive,
				fmt.Sprintf("cooldown active: %s remaining", remaining.Round(time.Second))))
		}
	}

	// Proof verification.
	if err := e.verifyProofs(ctx, regionProof, ageProof); err != nil {
		var violation *PolicyViolation
		if errors.As(err, &violation) {
			return e.reject(ctx, pctx, violation)
		}
		return err
	}

	// Pricing.
	pol, face, err := e.pricingInputs(ctx, colID, unitTypeID)
	if err != nil {
		return err
	}
	decision := e.strategyFor(c).Evaluate(pctx, pol, face)
	if !decision.Allowed {
		return e.reject(ctx, pctx, NewPolicyViolation(violationSentinel(decision.Reason), decision.Reason))
	}

	// Move units. A ledger failure leaves all turnstile state untouched.
	e.inFlight.Store(true)
	err = e.ledger.Move(ctx, from, to, unitTypeID, amount)
	e.inFlight.Store(false)
	if err != nil {
		if errors.Is(err, asset.ErrInsufficientBalance) {
			return e.reject(ctx, pctx, NewPolicyViolation(ErrInsufficientHold, "insufficient balance"))
		}
		return err
	}

	// Both parties enter the post-transfer cooldown.
	if err := e.recordParty(ctx, colID, sender, from, unitTypeID, now); err != nil {
		return err
	}
	recipient, err := e.store.GetHolding(ctx, colID, to, unitTypeID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := e.recordParty(ctx, colID, recipient, to, unitTypeID, now); err != nil {
		return err
	}

	// Fee record for priced sales.
	if price > 0 {
		fee := record.NewFee(colID, from, to, unitTypeID, amount, price, decision.FeeBps, now)
		if err := e.store.AppendFee(ctx, fee); err != nil {
			return err
		}
		e.plugins.EmitFeeCharged(ctx, fee)
	}

	e.logger.Info("transfer approved",
		"collection", colID.String(),
		"from", from,
		"to", to,
		"unit_type", unitTypeID,
		"amount", amount,
		"price", price,
		"fee_bps", int64(decision.FeeBps),
	)
	e.plugins.EmitTransferApproved(ctx, pctx, decision)
	return nil
}

// ──────────────────────────────────────────────────
// Check-in
// ──────────────────────────────────────────────────

// CheckIn marks a holder's units as used. It succeeds at most once per
// holding and requires a positive balance.
func (e *Engine) CheckIn(ctx context.Context, colID id.CollectionID, holder string, unitTypeID uint64) (*record.CheckIn, error) {
	if _, err := e.store.GetCollection(ctx, colID); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	balance, err := e.ledger.BalanceOf(ctx, holder, unitTypeID)
	if err != nil {
		return nil, err
	}
	if balance <= 0 {
		return nil, ErrNotHolder
	}

	now := e.clock()
	st, err := e.store.GetHolding(ctx, colID, holder, unitTypeID)
	switch {
	case err == nil:
		if st.CheckedIn() {
			return nil, ErrAlreadyCheckedIn
		}
	case errors.Is(err, ErrNotFound):
		st = holding.NewTransferred(colID, holder, unitTypeID, now)
	default:
		return nil, err
	}

	st.CheckedInAt = &now
	st.UpdatedAt = now
	if err := e.store.PutHolding(ctx, colID, st); err != nil {
		return nil, err
	}

	rec := record.NewCheckIn(colID, holder, unitTypeID, now)
	if err := e.store.AppendCheckIn(ctx, rec); err != nil {
		return nil, err
	}

	e.plugins.EmitCheckedIn(ctx, rec)
	return rec, nil
}

// ──────────────────────────────────────────────────
// Records
// ──────────────────────────────────────────────────

// FeeRecords lists the fee records of a collection.
func (e *Engine) FeeRecords(ctx context.Context, colID id.CollectionID, opts record.ListOpts) ([]*record.Fee, error) {
	return e.store.ListFees(ctx, colID, opts)
}

// CheckInRecords lists the check-in records of a collection.
func (e *Engine) CheckInRecords(ctx context.Context, colID id.CollectionID, opts record.ListOpts) ([]*record.CheckIn, error) {
	return e.store.ListCheckIns(ctx, colID, opts)
}

// Holding retrieves the transfer state for one holder's units.
func (e *Engine) Holding(ctx context.Context, colID id.CollectionID, holder string, unitTypeID uint64) (*holding.State, error) {
	return e.store.GetHolding(ctx, colID, holder, unitTypeID)
}

// ──────────────────────────────────────────────────
// Ledger mutation hook
// ──────────────────────────────────────────────────

// onMutation observes ledger mutations the engine did not initiate. Mints
// seed cooldown state for the recipient; direct moves are enforced as
// gifts, so an active cooldown aborts them.
func (e *Engine) onMutation(ctx context.Context, m asset.Mutation) error {
	if e.inFlight.Load() {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	colID, known := e.unitCols[m.UnitTypeID]
	if !known {
		e.logger.Debug("ignoring mutation for unknown unit type",
			"unit_type", m.UnitTypeID,
		)
		return nil
	}

	now := e.clock()

	if m.Mint() {
		st, err := e.store.GetHolding(ctx, colID, m.To, m.UnitTypeID)
		switch {
		case err == nil:
			st.LastTransferAt = now
			st.UpdatedAt = now
		case errors.Is(err, ErrNotFound):
			st = holding.NewMinted(colID, m.To, m.UnitTypeID, now)
		default:
			return err
		}
		return e.store.PutHolding(ctx, colID, st)
	}

	sender, err := e.store.GetHolding(ctx, colID, m.From, m.UnitTypeID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if sender != nil {
		if remaining := sender.CooldownRemaining(now); remaining > 0 {
			return NewPolicyViolation(ErrCooldownActive,
				fmt.Sprintf("cooldown active: %s remaining", remaining.Round(time.Second)))
		}
	}

	if err := e.recordParty(ctx, colID, sender, m.From, m.UnitTypeID, now); err != nil {
		return err
	}
	recipient, err := e.store.GetHolding(ctx, colID, m.To, m.UnitTypeID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return e.recordParty(ctx, colID, recipient, m.To, m.UnitTypeID, now)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// pricingInputs loads the policy and face value a strategy evaluates
// against. Both are optional: a missing policy means unconfigured, a
// missing face value stays zero for the strategy to flag.
func (e *Engine) pricingInputs(ctx context.Context, colID id.CollectionID, unitTypeID uint64) (*policy.Policy, int64, error) {
	pol, err := e.store.GetPolicy(ctx, colID)
	if err != nil && !errors.Is(err, ErrPolicyNotSet) {
		return nil, 0, err
	}

	face, err := e.store.GetFaceValue(ctx, colID, unitTypeID)
	if err != nil && !errors.Is(err, ErrFaceValueNotSet) {
		return nil, 0, err
	}

	return pol, face, nil
}

// strategyFor resolves the pricing strategy of a collection.
func (e *Engine) strategyFor(c *policy.Collection) pricing.Strategy {
	if c.Strategy == "" {
		return e.defaultStrategy
	}
	if s := e.resolveStrategy(c.Strategy); s != nil {
		return s
	}
	return e.defaultStrategy
}

// resolveStrategy maps a name to a built-in or plugin strategy, or nil.
func (e *Engine) resolveStrategy(name string) pricing.Strategy {
	switch name {
	case pricing.TieredName:
		return pricing.Tiered{}
	case pricing.AllowAllName:
		return pricing.AllowAll{}
	}
	return e.plugins.Strategy(name)
}

// verifyProofs runs the verifier over any supplied proofs. A failed
// verification surfaces as a policy violation.
func (e *Engine) verifyProofs(ctx context.Context, regionProof, ageProof []byte) error {
	if regionProof != nil {
		ok, err := e.verifier.Verify(ctx, regionProof, proof.ClaimRegion)
		if err != nil {
			return err
		}
		if !ok {
			return NewPolicyViolation(ErrProofRejected, "region proof rejected")
		}
	}
	if ageProof != nil {
		ok, err := e.verifier.Verify(ctx, ageProof, proof.ClaimAge)
		if err != nil {
			return err
		}
		if !ok {
			return NewPolicyViolation(ErrProofRejected, "age proof rejected")
		}
	}
	return nil
}

// recordParty moves one party's holding into the post-transfer state,
// creating the state on first contact.
func (e *Engine) recordParty(ctx context.Context, colID id.CollectionID, st *holding.State, holder string, unitTypeID uint64, now time.Time) error {
	if st == nil {
		st = holding.NewTransferred(colID, holder, unitTypeID, now)
	} else {
		st.RecordTransfer(now)
	}
	return e.store.PutHolding(ctx, colID, st)
}

// reject emits the rejection event and returns the violation.
func (e *Engine) reject(ctx context.Context, pctx pricing.Context, violation *PolicyViolation) error {
	e.logger.Info("transfer rejected",
		"from", pctx.From,
		"to", pctx.To,
		"unit_type", pctx.UnitTypeID,
		"reason", violation.Reason,
	)
	e.plugins.EmitTransferRejected(ctx, pctx, violation.Reason)
	return violation
}

// violationSentinel maps a strategy rejection reason to its sentinel.
func violationSentinel(reason string) error {
	switch reason {
	case pricing.ReasonFaceValueNotSet:
		return ErrFaceValueNotSet
	case pricing.ReasonEventStarted:
		return ErrEventStarted
	case pricing.ReasonPriceExceedsCap:
		return ErrPriceExceedsCap
	}
	return nil
}
