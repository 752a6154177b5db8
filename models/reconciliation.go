package models

import (
	"context"
	"errors"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Reconciliation holds the period-end consumption working for one
// (period, location). Value columns are recomputed from the movement ledger;
// the manual adjustment set and the physical closing value are user input.
// The row becomes immutable once the period closes.
//
// The manual ClosingValue feeds the consumption formula only: the stock ledger
// keeps rolling forward on its own computed balance.
type Reconciliation struct {
	ID                int              `gorm:"primary_key" json:"id"`
	PeriodId          int              `gorm:"index:uniq_reconciliation,unique;not null" json:"period_id"`
	LocationId        int              `gorm:"index:uniq_reconciliation,unique;not null" json:"location_id"`
	OpeningValue      decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"opening_value"`
	ReceiptsValue     decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"receipts_value"`
	IssuesValue       decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"issues_value"`
	TransfersInValue  decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"transfers_in_value"`
	TransfersOutValue decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"transfers_out_value"`
	BackCharges       decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"back_charges"`
	Credits           decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"credits"`
	Condemnations     decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"condemnations"`
	OtherAdjustments  decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"other_adjustments"`
	ClosingValue      *decimal.Decimal `gorm:"type:decimal(20,4)" json:"closing_value"` // physical-count input
	Consumption       decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"consumption"`
	ActivityCount     decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"activity_count"` // e.g. mandays
	UnitCost          *decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_cost"`                // nil when activity_count = 0
	ComputedAt        *time.Time       `json:"computed_at"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsComplete reports whether the reconciliation can back a Ready transition:
// it has been computed and has a closing value.
func (r *Reconciliation) IsComplete() bool {
	return r.ComputedAt != nil && r.ClosingValue != nil
}

// ReconciliationView is the figure set folded into a closing snapshot.
type ReconciliationView struct {
	OpeningValue      decimal.Decimal  `json:"opening_value"`
	ReceiptsValue     decimal.Decimal  `json:"receipts_value"`
	IssuesValue       decimal.Decimal  `json:"issues_value"`
	TransfersInValue  decimal.Decimal  `json:"transfers_in_value"`
	TransfersOutValue decimal.Decimal  `json:"transfers_out_value"`
	BackCharges       decimal.Decimal  `json:"back_charges"`
	Credits           decimal.Decimal  `json:"credits"`
	Condemnations     decimal.Decimal  `json:"condemnations"`
	OtherAdjustments  decimal.Decimal  `json:"other_adjustments"`
	ClosingValue      *decimal.Decimal `json:"closing_value"`
	Consumption       decimal.Decimal  `json:"consumption"`
	ActivityCount     decimal.Decimal  `json:"activity_count"`
	UnitCost          *decimal.Decimal `json:"unit_cost"`
}

func (r *Reconciliation) View() *ReconciliationView {
	return &ReconciliationView{
		OpeningValue:      r.OpeningValue,
		ReceiptsValue:     r.ReceiptsValue,
		IssuesValue:       r.IssuesValue,
		TransfersInValue:  r.TransfersInValue,
		TransfersOutValue: r.TransfersOutValue,
		BackCharges:       r.BackCharges,
		Credits:           r.Credits,
		Condemnations:     r.Condemnations,
		OtherAdjustments:  r.OtherAdjustments,
		ClosingValue:      r.ClosingValue,
		Consumption:       r.Consumption,
		ActivityCount:     r.ActivityCount,
		UnitCost:          r.UnitCost,
	}
}

// ReconciliationAdjustments is the manual input set saved by users ahead of
// marking a location ready.
type ReconciliationAdjustments struct {
	BackCharges      decimal.Decimal  `json:"back_charges"`
	Credits          decimal.Decimal  `json:"credits"`
	Condemnations    decimal.Decimal  `json:"condemnations"`
	OtherAdjustments decimal.Decimal  `json:"other_adjustments"`
	ClosingValue     *decimal.Decimal `json:"closing_value"`
	ActivityCount    decimal.Decimal  `json:"activity_count"`
}

// FirstOrCreateReconciliation finds or creates the working row for
// (period, location) inside the caller's transaction.
func FirstOrCreateReconciliation(tx *gorm.DB, periodId int, locationId int) (*Reconciliation, error) {
	reconciliation := Reconciliation{
		PeriodId:   periodId,
		LocationId: locationId,
	}
	result := tx.Where("period_id = ? AND location_id = ?", periodId, locationId).
		FirstOrCreate(&reconciliation)
	if result.Error != nil {
		return nil, result.Error
	}
	return &reconciliation, nil
}

func GetReconciliation(ctx context.Context, periodId int, locationId int) (*Reconciliation, error) {
	var reconciliation Reconciliation
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("period_id = ? AND location_id = ?", periodId, locationId).
		First(&reconciliation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ReconciliationIncompleteError{
				PeriodId:     periodId,
				LocationId:   locationId,
				MissingField: "reconciliation",
			}
		}
		return nil, err
	}
	return &reconciliation, nil
}
