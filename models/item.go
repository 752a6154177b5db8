package models

import (
	"context"
	"errors"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Item is a stockable material. PurchasePrice is the current list price; it
// is frozen into an ItemPeriodPrice row when a period opens, and receipts that
// omit a unit price fall back to the frozen period price.
type Item struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	Sku           string          `gorm:"size:50;uniqueIndex;not null" json:"sku"`
	Unit          string          `gorm:"size:20;not null" json:"unit"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purchase_price"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Name          string          `json:"name" validate:"required,max=100"`
	Sku           string          `json:"sku" validate:"required,max=50"`
	Unit          string          `json:"unit" validate:"required,max=20"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

// ItemPeriodPrice is the price list locked at period open (prices become
// immutable for the life of the period).
type ItemPeriodPrice struct {
	ID        int             `gorm:"primary_key" json:"id"`
	PeriodId  int             `gorm:"index:uniq_item_period_price,unique;not null" json:"period_id"`
	ItemId    int             `gorm:"index:uniq_item_period_price,unique;not null" json:"item_id"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {
	if err := utils.Validate.Struct(input); err != nil {
		return nil, err
	}
	if input.PurchasePrice.IsNegative() {
		return nil, errors.New("purchase price cannot be negative")
	}

	item := Item{
		Name:          input.Name,
		Sku:           input.Sku,
		Unit:          input.Unit,
		PurchasePrice: input.PurchasePrice,
		IsActive:      utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func GetItem(ctx context.Context, id int) (*Item, error) {
	return utils.FetchModel[Item](ctx, id)
}

// LockItemPrices snapshots every active item's purchase price for the period.
// Idempotent: re-running for the same period leaves existing rows untouched.
func LockItemPrices(tx *gorm.DB, periodId int) error {
	var items []*Item
	if err := tx.Where("is_active = ?", true).Find(&items).Error; err != nil {
		return err
	}

	prices := make([]*ItemPeriodPrice, 0, len(items))
	for _, item := range items {
		prices = append(prices, &ItemPeriodPrice{
			PeriodId:  periodId,
			ItemId:    item.ID,
			UnitPrice: item.PurchasePrice,
		})
	}
	if len(prices) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&prices).Error
}

// GetPeriodPrice returns the frozen price for (period, item), or the item's
// current price if the period predates price locking.
func GetPeriodPrice(tx *gorm.DB, periodId int, itemId int) (decimal.Decimal, error) {
	var price ItemPeriodPrice
	err := tx.Where("period_id = ? AND item_id = ?", periodId, itemId).First(&price).Error
	if err == nil {
		return price.UnitPrice, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, err
	}
	var item Item
	if err := tx.Where("id = ?", itemId).First(&item).Error; err != nil {
		return decimal.Zero, err
	}
	return item.PurchasePrice, nil
}
