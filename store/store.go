package store

import (
	"context"

	"github.com/xraph/turnstile/holding"
	"github.com/xraph/turnstile/id"
	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/record"
)

// Store is the unified storage interface for all Turnstile entities.
// Instead of embedding sub-interfaces, all methods are declared
// explicitly to avoid naming conflicts.
type Store interface {
	// Collection methods
	CreateCollection(ctx context.Context, c *policy.Collection) error
	GetCollection(ctx context.Context, colID id.CollectionID) (*policy.Collection, error)
	UpdateCollection(ctx context.Context, c *policy.Collection) error
	ListCollections(ctx context.Context, owner string) ([]*policy.Collection, error)

	// Policy methods
	SetPolicy(ctx context.Context, colID id.CollectionID, p *policy.Policy) error
	GetPolicy(ctx context.Context, colID id.CollectionID) (*policy.Policy, error)

	// Face value methods
	SetFaceValue(ctx context.Context, colID id.CollectionID, unitTypeID uint64, price int64) error
	GetFaceValue(ctx context.Context, colID id.CollectionID, unitTypeID uint64) (int64, error)

	// Holding state methods
	GetHolding(ctx context.Context, colID id.CollectionID, holder string, unitTypeID uint64) (*holding.State, error)
	PutHolding(ctx context.Context, colID id.CollectionID, s *holding.State) error

	// Record methods
	AppendFee(ctx context.Context, f *record.Fee) error
	ListFees(ctx context.Context, colID id.CollectionID, opts record.ListOpts) ([]*record.Fee, error)
	AppendCheckIn(ctx context.Context, c *record.CheckIn) error
	ListCheckIns(ctx context.Context, colID id.CollectionID, opts record.ListOpts) ([]*record.CheckIn, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
