package mongo

import (
	"strconv"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/turnstile/holding"
	"github.com/xraph/turnstile/id"
	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/record"
	"github.com/xraph/turnstile/types"
)

// ==================== Collection models ====================

type collectionModel struct {
	grove.BaseModel `grove:"table:turnstile_collections"`

	ID        string            `grove:"id,pk"      bson:"_id"`
	Name      string            `grove:"name"       bson:"name"`
	Owner     string            `grove:"owner"      bson:"owner"`
	Strategy  string            `grove:"strategy"   bson:"strategy"`
	Metadata  map[string]string `grove:"metadata"   bson:"metadata,omitempty"`
	CreatedAt time.Time         `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `grove:"updated_at" bson:"updated_at"`
}

func toCollectionModel(c *policy.Collection) *collectionModel {
	return &collectionModel{
		ID:        c.ID.String(),
		Name:      c.Name,
		Owner:     c.Owner,
		Strategy:  c.Strategy,
		Metadata:  c.Metadata,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func fromCollectionModel(m *collectionModel) (*policy.Collection, error) {
	colID, err := id.ParseCollectionID(m.ID)
	if err != nil {
		return nil, err
	}
	return &policy.Collection{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       colID,
		Name:     m.Name,
		Owner:    m.Owner,
		Strategy: m.Strategy,
		Metadata: m.Metadata,
	}, nil
}

// ==================== Policy models ====================

type policyModel struct {
	grove.BaseModel `grove:"table:turnstile_policies"`

	CollectionID        string    `grove:"collection_id,pk"       bson:"_id"`
	EventAt             time.Time `grove:"event_at"               bson:"event_at"`
	BaseFeeBps          int64     `grove:"base_fee_bps"           bson:"base_fee_bps"`
	TLongNs             int64     `grove:"t_long_ns"              bson:"t_long_ns"`
	TMidNs              int64     `grove:"t_mid_ns"               bson:"t_mid_ns"`
	CapLongBps          int64     `grove:"cap_long_bps"           bson:"cap_long_bps"`
	CapMidBps           int64     `grove:"cap_mid_bps"            bson:"cap_mid_bps"`
	FeeLongBps          int64     `grove:"fee_long_bps"           bson:"fee_long_bps"`
	FeeMidBps           int64     `grove:"fee_mid_bps"            bson:"fee_mid_bps"`
	MarkupStepBps       int64     `grove:"markup_step_bps"        bson:"markup_step_bps"`
	MarkupFeePerStepBps int64     `grove:"markup_fee_per_step_bps" bson:"markup_fee_per_step_bps"`
	MaxFeeBps           int64     `grove:"max_fee_bps"            bson:"max_fee_bps"`
	CreatedAt           time.Time `grove:"created_at"             bson:"created_at"`
	UpdatedAt           time.Time `grove:"updated_at"             bson:"updated_at"`
}

func toPolicyModel(colID id.CollectionID, p *policy.Policy) *policyModel {
	return &policyModel{
		CollectionID:        colID.String(),
		EventAt:             p.EventAt,
		BaseFeeBps:          int64(p.BaseFeeBps),
		TLongNs:             int64(p.TLong),
		TMidNs:              int64(p.TMid),
		CapLongBps:          int64(p.CapLongBps),
		CapMidBps:           int64(p.CapMidBps),
		FeeLongBps:          int64(p.FeeLongBps),
		FeeMidBps:           int64(p.FeeMidBps),
		MarkupStepBps:       int64(p.MarkupStepBps),
		MarkupFeePerStepBps: int64(p.MarkupFeePerStepBps),
		MaxFeeBps:           int64(p.MaxFeeBps),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func fromPolicyModel(m *policyModel) *policy.Policy {
	return &policy.Policy{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		EventAt:             m.EventAt,
		BaseFeeBps:          types.Bps(m.BaseFeeBps),
		TLong:               time.Duration(m.TLongNs),
		TMid:                time.Duration(m.TMidNs),
		CapLongBps:          types.Bps(m.CapLongBps),
		CapMidBps:           types.Bps(m.CapMidBps),
		FeeLongBps:          types.Bps(m.FeeLongBps),
		FeeMidBps:           types.Bps(m.FeeMidBps),
		MarkupStepBps:       types.Bps(m.MarkupStepBps),
		MarkupFeePerStepBps: types.Bps(m.MarkupFeePerStepBps),
		MaxFeeBps:           types.Bps(m.MaxFeeBps),
	}
}

// ==================== Face value models ====================

type faceValueModel struct {
	grove.BaseModel `grove:"table:turnstile_face_values"`

	FaceKey      string `grove:"face_key,pk"    bson:"_id"`
	CollectionID string `grove:"collection_id"  bson:"collection_id"`
	UnitTypeID   uint64 `grove:"unit_type_id"   bson:"unit_type_id"`
	Price        int64  `grove:"price"          bson:"price"`
}

func faceValueKey(colID id.CollectionID, unitTypeID uint64) string {
	return colID.String() + ":" + strconv.FormatUint(unitTypeID, 10)
}

func toFaceValueModel(colID id.CollectionID, unitTypeID uint64, price int64) *faceValueModel {
	return &faceValueModel{
		FaceKey:      faceValueKey(colID, unitTypeID),
		CollectionID: colID.String(),
		UnitTypeID:   unitTypeID,
		Price:        price,
	}
}

// ==================== Holding models ====================

type holdingModel struct {
	grove.BaseModel `grove:"table:turnstile_holdings"`

	HoldingKey           string     `grove:"holding_key,pk"         bson:"_id"`
	CollectionID         string     `grove:"collection_id"          bson:"collection_id"`
	Holder               string     `grove:"holder"                 bson:"holder"`
	UnitTypeID           uint64     `grove:"unit_type_id"           bson:"unit_type_id"`
	LastTransferAt       time.Time  `grove:"last_transfer_at"       bson:"last_transfer_at"`
	FirstTransferPending bool       `grove:"first_transfer_pending" bson:"first_transfer_pending"`
	CheckedInAt          *time.Time `grove:"checked_in_at"          bson:"checked_in_at,omitempty"`
	CreatedAt            time.Time  `grove:"created_at"             bson:"created_at"`
	UpdatedAt            time.Time  `grove:"updated_at"             bson:"updated_at"`
}

func holdingStateKey(colID id.CollectionID, holder string, unitTypeID uint64) string {
	return colID.String() + ":" + holder + ":" + strconv.FormatUint(unitTypeID, 10)
}

func toHoldingModel(colID id.CollectionID, s *holding.State) *holdingModel {
	return &holdingModel{
		HoldingKey:           holdingStateKey(colID, s.Holder, s.UnitTypeID),
		CollectionID:         colID.String(),
		Holder:               s.Holder,
		UnitTypeID:           s.UnitTypeID,
		LastTransferAt:       s.LastTransferAt,
		FirstTransferPending: s.FirstTransferPending,
		CheckedInAt:          s.CheckedInAt,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func fromHoldingModel(m *holdingModel) (*holding.State, error) {
	colID, err := id.ParseCollectionID(m.CollectionID)
	if err != nil {
		return nil, err
	}
	return &holding.State{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Collection:           colID,
		Holder:               m.Holder,
		UnitTypeID:           m.UnitTypeID,
		LastTransferAt:       m.LastTransferAt,
		FirstTransferPending: m.FirstTransferPending,
		CheckedInAt:          m.CheckedInAt,
	}, nil
}

// ==================== Record models ====================

type feeRecordModel struct {
	grove.BaseModel `grove:"table:turnstile_fee_records"`

	ID           string    `grove:"id,pk"         bson:"_id"`
	CollectionID string    `grove:"collection_id" bson:"collection_id"`
	FromHolder   string    `grove:"from_holder"   bson:"from_holder"`
	ToHolder     string    `grove:"to_holder"     bson:"to_holder"`
	UnitTypeID   uint64    `grove:"unit_type_id"  bson:"unit_type_id"`
	Amount       int64     `grove:"amount"        bson:"amount"`
	Price        int64     `grove:"price"         bson:"price"`
	FeeBps       int64     `grove:"fee_bps"       bson:"fee_bps"`
	FeeAmount    int64     `grove:"fee_amount"    bson:"fee_amount"`
	OccurredAt   time.Time `grove:"occurred_at"   bson:"occurred_at"`
}

func toFeeRecordModel(f *record.Fee) *feeRecordModel {
	return &feeRecordModel{
		ID:           f.ID.String(),
		CollectionID: f.Collection.String(),
		FromHolder:   f.From,
		ToHolder:     f.To,
		UnitTypeID:   f.UnitTypeID,
		Amount:       f.Amount,
		Price:        f.Price,
		FeeBps:       int64(f.FeeBps),
		FeeAmount:    f.FeeAmount,
		OccurredAt:   f.OccurredAt,
	}
}

func fromFeeRecordModel(m *feeRecordModel) (*record.Fee, error) {
	recID, err := id.ParseFeeRecordID(m.ID)
	if err != nil {
		return nil, err
	}
	colID, err := id.ParseCollectionID(m.CollectionID)
	if err != nil {
		return nil, err
	}
	return &record.Fee{
		ID:         recID,
		Collection: colID,
		From:       m.FromHolder,
		To:         m.ToHolder,
		UnitTypeID: m.UnitTypeID,
		Amount:     m.Amount,
		Price:      m.Price,
		FeeBps:     types.Bps(m.FeeBps),
		FeeAmount:  m.FeeAmount,
		OccurredAt: m.OccurredAt,
	}, nil
}

type checkInRecordModel struct {
	grove.BaseModel `grove:"table:turnstile_checkin_records"`

	ID           string    `grove:"id,pk"         bson:"_id"`
	CollectionID string    `grove:"collection_id" bson:"collection_id"`
	Holder       string    `grove:"holder"        bson:"holder"`
	UnitTypeID   uint64    `grove:"unit_type_id"  bson:"unit_type_id"`
	OccurredAt   time.Time `grove:"occurred_at"   bson:"occurred_at"`
}

func toCheckInRecordModel(c *record.CheckIn) *checkInRecordModel {
	return &checkInRecordModel{
		ID:           c.ID.String(),
		CollectionID: c.Collection.String(),
		Holder:       c.Holder,
		UnitTypeID:   c.UnitTypeID,
		OccurredAt:   c.OccurredAt,
	}
}

func fromCheckInRecordModel(m *checkInRecordModel) (*record.CheckIn, error) {
	recID, err := id.ParseCheckInID(m.ID)
	if err != nil {
		return nil, err
	}
	colID, err := id.ParseCollectionID(m.CollectionID)
	if err != nil {
		return nil, err
	}
	return &record.CheckIn{
		ID:         recID,
		Collection: colID,
		Holder:     m.Holder,
		UnitTypeID: m.UnitTypeID,
		OccurredAt: m.OccurredAt,
	}, nil
}
