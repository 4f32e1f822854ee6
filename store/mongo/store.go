package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/turnstile"
	"github.com/xraph/turnstile/holding"
	"github.com/xraph/turnstile/id"
	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/record"
	turnstilestore "github.com/xraph/turnstile/store"
)

// Collection name constants.
const (
	colCollections = "turnstile_collections"
	colPolicies    = "turnstile_policies"
	colFaceValues  = "turnstile_face_values"
	colHoldings    = "turnstile_holdings"
	colFeeRecords  = "turnstile_fee_records"
	colCheckIns    = "turnstile_checkin_records"
)

// compile-time interface check
var _ turnstilestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all turnstile collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("turnstile/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Collection Store ====================

func (s *Store) CreateCollection(ctx context.Context, c *policy.Collection) error {
	m := toCollectionModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("turnstile/mongo: create collection: %w", err)
	}
	return nil
}

func (s *Store) GetCollection(ctx context.Context, colID id.CollectionID) (*policy.Collection, error) {
	var m collectionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": colID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, turnstile.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("turnstile/mongo: get collection: %w", err)
	}
	return fromCollectionModel(&m)
}

func (s *Store) UpdateCollection(ctx context.Context, c *policy.Collection) error {
	m := toCollectionModel(c)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("turnstile/mongo: update collection: %w", err)
	}
	if res.MatchedCount() == 0 {
		return turnstile.ErrCollectionNotFound
	}
	return nil
}

func (s *Store) ListCollections(ctx context.Context, owner string) ([]*policy.Collection, error) {
	var models []collectionModel

	filter := bson.M{}
	if owner != "" {
		filter["owner"] = owner
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("turnstile/mongo: list collections: %w", err)
	}

	result := make([]*policy.Collection, len(models))
	for i := range models {
		c, err := fromCollectionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Policy Store ====================

func (s *Store) SetPolicy(ctx context.Context, colID id.CollectionID, p *policy.Policy) error {
	m := toPolicyModel(colID, p)
	m.UpdatedAt = now()

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.CollectionID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":                     m.CollectionID,
			"event_at":                m.EventAt,
			"base_fee_bps":            m.BaseFeeBps,
			"t_long_ns":               m.TLongNs,
			"t_mid_ns":                m.TMidNs,
			"cap_long_bps":            m.CapLongBps,
			"cap_mid_bps":             m.CapMidBps,
			"fee_long_bps":            m.FeeLongBps,
			"fee_mid_bps":             m.FeeMidBps,
			"markup_step_bps":         m.MarkupStepBps,
			"markup_fee_per_step_bps": m.MarkupFeePerStepBps,
			"max_fee_bps":             m.MaxFeeBps,
			"created_at":              m.CreatedAt,
			"updated_at":              m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("turnstile/mongo: set policy: %w", err)
	}
	return nil
}

func (s *Store) GetPolicy(ctx context.Context, colID id.CollectionID) (*policy.Policy, error) {
	var m policyModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": colID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, turnstile.ErrPolicyNotSet
		}
		return nil, fmt.Errorf("turnstile/mongo: get policy: %w", err)
	}
	return fromPolicyModel(&m), nil
}

// ==================== Face Value Store ====================

func (s *Store) SetFaceValue(ctx context.Context, colID id.CollectionID, unitTypeID uint64, price int64) error {
	m := toFaceValueModel(colID, unitTypeID, price)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.FaceKey}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":           m.FaceKey,
			"collection_id": m.CollectionID,
			"unit_type_id":  m.UnitTypeID,
			"price":         m.Price,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("turnstile/mongo: set face value: %w", err)
	}
	return nil
}

func (s *Store) GetFaceValue(ctx context.Context, colID id.CollectionID, unitTypeID uint64) (int64, error) {
	var m faceValueModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": faceValueKey(colID, unitTypeID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, turnstile.ErrFaceValueNotSet
		}
		return 0, fmt.Errorf("turnstile/mongo: get face value: %w", err)
	}
	return m.Price, nil
}

// ==================== Holding Store ====================

func (s *Store) GetHolding(ctx context.Context, colID id.CollectionID, holder string, unitTypeID uint64) (*holding.State, error) {
	var m holdingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": holdingStateKey(colID, holder, unitTypeID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, turnstile.ErrNotFound
		}
		return nil, fmt.Errorf("turnstile/mongo: get holding: %w", err)
	}
	return fromHoldingModel(&m)
}

func (s *Store) PutHolding(ctx context.Context, colID id.CollectionID, h *holding.State) error {
	m := toHoldingModel(colID, h)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.HoldingKey}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":                    m.HoldingKey,
			"collection_id":          m.CollectionID,
			"holder":                 m.Holder,
			"unit_type_id":           m.UnitTypeID,
			"last_transfer_at":       m.LastTransferAt,
			"first_transfer_pending": m.FirstTransferPending,
			"checked_in_at":          m.CheckedInAt,
			"created_at":             m.CreatedAt,
			"updated_at":             m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("turnstile/mongo: put holding: %w", err)
	}
	return nil
}

// ==================== Record Store ====================

func (s *Store) AppendFee(ctx context.Context, f *record.Fee) error {
	m := toFeeRecordModel(f)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("turnstile/mongo: append fee: %w", err)
	}
	return nil
}

func (s *Store) ListFees(ctx context.Context, colID id.CollectionID, opts record.ListOpts) ([]*record.Fee, error) {
	var models []feeRecordModel

	filter := bson.M{"collection_id": colID.String()}
	if opts.UnitTypeID != nil {
		filter["unit_type_id"] = *opts.UnitTypeID
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "occurred_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("turnstile/mongo: list fees: %w", err)
	}

	result := make([]*record.Fee, len(models))
	for i := range models {
		f, err := fromFeeRecordModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = f
	}
	return result, nil
}

func (s *Store) AppendCheckIn(ctx context.Context, c *record.CheckIn) error {
	m := toCheckInRecordModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("turnstile/mongo: append check-in: %w", err)
	}
	return nil
}

func (s *Store) ListCheckIns(ctx context.Context, colID id.CollectionID, opts record.ListOpts) ([]*record.CheckIn, error) {
	var models []checkInRecordModel

	filter := bson.M{"collection_id": colID.String()}
	if opts.UnitTypeID != nil {
		filter["unit_type_id"] = *opts.UnitTypeID
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "occurred_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("turnstile/mongo: list check-ins: %w", err)
	}

	result := make([]*record.CheckIn, len(models))
	for i := range models {
		c, err := fromCheckInRecordModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all turnstile collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCollections: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colPolicies: {},
		colFaceValues: {
			{Keys: bson.D{{Key: "collection_id", Value: 1}}},
			{
				Keys:    bson.D{{Key: "collection_id", Value: 1}, {Key: "unit_type_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colHoldings: {
			{Keys: bson.D{{Key: "collection_id", Value: 1}, {Key: "holder", Value: 1}}},
		},
		colFeeRecords: {
			{Keys: bson.D{{Key: "collection_id", Value: 1}, {Key: "occurred_at", Value: 1}}},
			{Keys: bson.D{{Key: "collection_id", Value: 1}, {Key: "unit_type_id", Value: 1}}},
		},
		colCheckIns: {
			{Keys: bson.D{{Key: "collection_id", Value: 1}, {Key: "occurred_at", Value: 1}}},
		},
	}
}
