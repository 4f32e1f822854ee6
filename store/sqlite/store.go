package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/turnstile"
	"github.com/xraph/turnstile/holding"
	"github.com/xraph/turnstile/id"
	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/record"
	turnstilestore "github.com/xraph/turnstile/store"
)

// compile-time interface check
var _ turnstilestore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("turnstile/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("turnstile/sqlite: migration failed: %w", err)
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
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCollection(ctx context.Context, colID id.CollectionID) (*policy.Collection, error) {
	m := new(collectionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", colID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, turnstile.ErrCollectionNotFound
		}
		return nil, err
	}
	return fromCollectionModel(m)
}

func (s *Store) UpdateCollection(ctx context.Context, c *policy.Collection) error {
	m := toCollectionModel(c)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return turnstile.ErrCollectionNotFound
	}
	return nil
}

func (s *Store) ListCollections(ctx context.Context, owner string) ([]*policy.Collection, error) {
	var models []collectionModel
	q := s.sdb.NewSelect(&models)
	if owner != "" {
		q = q.Where("owner = ?", owner)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.sdb.NewInsert(m).
		OnConflict("(collection_id) DO UPDATE").
		Set("event_at = EXCLUDED.event_at").
		Set("base_fee_bps = EXCLUDED.base_fee_bps").
		Set("t_long_ns = EXCLUDED.t_long_ns").
		Set("t_mid_ns = EXCLUDED.t_mid_ns").
		Set("cap_long_bps = EXCLUDED.cap_long_bps").
		Set("cap_mid_bps = EXCLUDED.cap_mid_bps").
		Set("fee_long_bps = EXCLUDED.fee_long_bps").
		Set("fee_mid_bps = EXCLUDED.fee_mid_bps").
		Set("markup_step_bps = EXCLUDED.markup_step_bps").
		Set("markup_fee_per_step_bps = EXCLUDED.markup_fee_per_step_bps").
		Set("max_fee_bps = EXCLUDED.max_fee_bps").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetPolicy(ctx context.Context, colID id.CollectionID) (*policy.Policy, error) {
	m := new(policyModel)
	err := s.sdb.NewSelect(m).
		Where("collection_id = ?", colID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, turnstile.ErrPolicyNotSet
		}
		return nil, err
	}
	return fromPolicyModel(m), nil
}

// ==================== Face Value Store ====================

func (s *Store) SetFaceValue(ctx context.Context, colID id.CollectionID, unitTypeID uint64, price int64) error {
	m := toFaceValueModel(colID, unitTypeID, price)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(face_key) DO UPDATE").
		Set("price = EXCLUDED.price").
		Exec(ctx)
	return err
}

func (s *Store) GetFaceValue(ctx context.Context, colID id.CollectionID, unitTypeID uint64) (int64, error) {
	m := new(faceValueModel)
	err := s.sdb.NewSelect(m).
		Where("face_key = ?", faceValueKey(colID, unitTypeID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, turnstile.ErrFaceValueNotSet
		}
		return 0, err
	}
	return m.Price, nil
}

// ==================== Holding Store ====================

func (s *Store) GetHolding(ctx context.Context, colID id.CollectionID, holder string, unitTypeID uint64) (*holding.State, error) {
	m := new(holdingModel)
	err := s.sdb.NewSelect(m).
		Where("holding_key = ?", holdingStateKey(colID, holder, unitTypeID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, turnstile.ErrNotFound
		}
		return nil, err
	}
	return fromHoldingModel(m)
}

func (s *Store) PutHolding(ctx context.Context, colID id.CollectionID, h *holding.State) error {
	m := toHoldingModel(colID, h)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(holding_key) DO UPDATE").
		Set("last_transfer_at = EXCLUDED.last_transfer_at").
		Set("first_transfer_pending = EXCLUDED.first_transfer_pending").
		Set("checked_in_at = EXCLUDED.checked_in_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// ==================== Record Store ====================

func (s *Store) AppendFee(ctx context.Context, f *record.Fee) error {
	m := toFeeRecordModel(f)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListFees(ctx context.Context, colID id.CollectionID, opts record.ListOpts) ([]*record.Fee, error) {
	var models []feeRecordModel
	q := s.sdb.NewSelect(&models).
		Where("collection_id = ?", colID.String())

	if opts.UnitTypeID != nil {
		q = q.Where("unit_type_id = ?", *opts.UnitTypeID)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("occurred_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListCheckIns(ctx context.Context, colID id.CollectionID, opts record.ListOpts) ([]*record.CheckIn, error) {
	var models []checkInRecordModel
	q := s.sdb.NewSelect(&models).
		Where("collection_id = ?", colID.String())

	if opts.UnitTypeID != nil {
		q = q.Where("unit_type_id = ?", *opts.UnitTypeID)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("occurred_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
