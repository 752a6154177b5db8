package models

import (
	"context"
	"errors"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockPosition is the per-(location, item) ledger row: on-hand quantity and
// weighted-average cost. Rows are never deleted and persist across periods;
// only the transaction appliers mutate them, through a revision CAS.
//
// Invariants: on_hand >= 0 always; wac is zero only while on_hand is zero.
type StockPosition struct {
	ID         int             `gorm:"primary_key" json:"id"`
	LocationId int             `gorm:"index:uniq_stock_position,unique;not null" json:"location_id"`
	ItemId     int             `gorm:"index:uniq_stock_position,unique;not null" json:"item_id"`
	OnHand     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"on_hand"`
	Wac        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"wac"`
	Revision   int64           `gorm:"not null;default:0" json:"revision"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Value returns on_hand x wac at full precision.
func (sp *StockPosition) Value() decimal.Decimal {
	return sp.OnHand.Mul(sp.Wac)
}

// FirstOrCreateStockPosition finds or creates the row for (location, item).
// Creation races are resolved by the unique index: on duplicate-key the
// existing row is re-read.
func FirstOrCreateStockPosition(tx *gorm.DB, locationId int, itemId int) (*StockPosition, error) {
	position := StockPosition{
		LocationId: locationId,
		ItemId:     itemId,
	}
	result := tx.Where("location_id = ? AND item_id = ?", locationId, itemId).
		FirstOrCreate(&position)
	if result.Error != nil {
		return nil, result.Error
	}
	return &position, nil
}

// CompareAndSwapStockPosition writes the new on-hand/wac only if the row still
// carries the revision the caller read. Returns false when a concurrent writer
// got there first; the caller reloads and retries.
func CompareAndSwapStockPosition(tx *gorm.DB, position *StockPosition, newOnHand, newWac decimal.Decimal) (bool, error) {
	result := tx.Model(&StockPosition{}).
		Where("id = ? AND revision = ?", position.ID, position.Revision).
		Updates(map[string]interface{}{
			"on_hand":  newOnHand,
			"wac":      newWac,
			"revision": position.Revision + 1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	position.OnHand = newOnHand
	position.Wac = newWac
	position.Revision++
	return true, nil
}

// ReloadStockPosition re-reads the row by id for a CAS retry. The locking
// read sees the latest committed revision instead of the transaction's
// repeatable-read snapshot.
func ReloadStockPosition(tx *gorm.DB, position *StockPosition) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", position.ID).First(position).Error
}

// GetStockPosition returns the current position, or a zero position when no
// row exists yet (positions are created lazily on first movement).
func GetStockPosition(ctx context.Context, locationId int, itemId int) (*StockPosition, error) {
	var position StockPosition
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("location_id = ? AND item_id = ?", locationId, itemId).
		First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &StockPosition{LocationId: locationId, ItemId: itemId}, nil
		}
		return nil, err
	}
	return &position, nil
}

// ListStockPositions returns every position for a location, ordered by item,
// the iteration order used when a closing snapshot is captured.
func ListStockPositions(tx *gorm.DB, locationId int) ([]*StockPosition, error) {
	var positions []*StockPosition
	if err := tx.Where("location_id = ?", locationId).
		Order("item_id").
		Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}
