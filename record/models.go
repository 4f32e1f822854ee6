// Package record defines the append-only records Turnstile emits for
// external observers and indexers.
package record

import (
	"time"

	"github.com/xraph/turnstile/id"
	"github.com/xraph/turnstile/types"
)

// Fee is emitted once per approved priced transfer.
type Fee struct {
	ID         id.FeeRecordID  `json:"id"`
	Collection id.CollectionID `json:"collection"`
	From       string          `json:"from"`
	To         string          `json:"to"`
	UnitTypeID uint64          `json:"unit_type_id"`
	Amount     int64           `json:"amount"`

	// Price is the total sale price; FeeBps the charged rate; FeeAmount
	// the basis-point share of Price, truncated.
	Price     int64     `json:"price"`
	FeeBps    types.Bps `json:"fee_bps"`
	FeeAmount int64     `json:"fee_amount"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewFee builds a fee record, deriving FeeAmount from the price and rate.
func NewFee(col id.CollectionID, from, to string, unitTypeID uint64, amount, price int64, feeBps types.Bps, at time.Time) *Fee {
	return &Fee{
		ID:         id.NewFeeRecordID(),
		Collection: col,
		From:       from,
		To:         to,
		UnitTypeID: unitTypeID,
		Amount:     amount,
		Price:      price,
		FeeBps:     feeBps,
		FeeAmount:  feeBps.ApplyTo(price),
		OccurredAt: at,
	}
}

// CheckIn is emitted exactly once per used holding.
type CheckIn struct {
	ID         id.CheckInID    `json:"id"`
	Collection id.CollectionID `json:"collection"`
	Holder     string          `json:"holder"`
	UnitTypeID uint64          `json:"unit_type_id"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewCheckIn builds a check-in record.
func NewCheckIn(col id.CollectionID, holder string, unitTypeID uint64, at time.Time) *CheckIn {
	return &CheckIn{
		ID:         id.NewCheckInID(),
		Collection: col,
		Holder:     holder,
		UnitTypeID: unitTypeID,
		OccurredAt: at,
	}
}

// ListOpts filters record listings.
type ListOpts struct {
	// UnitTypeID filters to one unit type when non-nil.
	UnitTypeID *uint64

	Limit  int
	Offset int
}
