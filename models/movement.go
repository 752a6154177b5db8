package models

import (
	"context"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Movement is the append-only inventory ledger: one row per quantity change,
// valued at the unit cost attributed when it was posted. Rows are created by
// the transaction appliers and never updated; corrections are posted as
// compensating movements linked through ReversesMovementId.
type Movement struct {
	ID                 string          `gorm:"size:36;primary_key" json:"id"` // uuid
	Kind               MovementKind    `gorm:"type:enum('RCP','CNS','TRO','TRI');not null;index" json:"kind"`
	LocationId         int             `gorm:"index:idx_move_loc_item_period,priority:1;not null" json:"location_id"`
	ItemId             int             `gorm:"index:idx_move_loc_item_period,priority:2;not null" json:"item_id"`
	PeriodId           int             `gorm:"index:idx_move_loc_item_period,priority:3;not null" json:"period_id"`
	Qty                decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"` // signed by kind
	UnitCost           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`
	DocRef             string          `gorm:"size:100;index;not null" json:"doc_ref"`
	ReversesMovementId *string         `gorm:"size:36;index" json:"reverses_movement_id"`
	MovementDate       time.Time       `gorm:"index;not null" json:"movement_date"`
	CreatedBy          int             `gorm:"not null" json:"created_by"`
	CorrelationId      string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// Value returns |qty| x unit_cost, the absolute value moved.
func (m *Movement) Value() decimal.Decimal {
	return m.Qty.Abs().Mul(m.UnitCost)
}

// MovementTotals is the per-kind value aggregation for one (period, location),
// the raw input to the reconciliation formula.
type MovementTotals struct {
	ReceiptsValue     decimal.Decimal
	IssuesValue       decimal.Decimal
	TransfersInValue  decimal.Decimal
	TransfersOutValue decimal.Decimal
}

// AggregateMovements sums movement values by kind for (period, location),
// each valued at its recorded unit cost.
func AggregateMovements(tx *gorm.DB, periodId int, locationId int) (*MovementTotals, error) {
	type kindSum struct {
		Kind  MovementKind
		Total decimal.Decimal
	}
	var sums []kindSum
	err := tx.Model(&Movement{}).
		Select("kind, COALESCE(SUM(ABS(qty) * unit_cost), 0) AS total").
		Where("period_id = ? AND location_id = ?", periodId, locationId).
		Group("kind").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}

	totals := &MovementTotals{
		ReceiptsValue:     decimal.Zero,
		IssuesValue:       decimal.Zero,
		TransfersInValue:  decimal.Zero,
		TransfersOutValue: decimal.Zero,
	}
	for _, s := range sums {
		switch s.Kind {
		case MovementKindReceipt:
			totals.ReceiptsValue = s.Total
		case MovementKindConsumption:
			totals.IssuesValue = s.Total
		case MovementKindTransferIn:
			totals.TransfersInValue = s.Total
		case MovementKindTransferOut:
			totals.TransfersOutValue = s.Total
		}
	}
	return totals, nil
}

// ListMovements returns the audit trail for (period, location) in posting order.
func ListMovements(ctx context.Context, periodId int, locationId int) ([]*Movement, error) {
	var movements []*Movement
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("period_id = ? AND location_id = ?", periodId, locationId).
		Order("movement_date, created_at").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
