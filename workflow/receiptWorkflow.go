package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NewReceipt struct {
	LocationId   int              `json:"location_id" validate:"required"`
	ItemId       int              `json:"item_id" validate:"required"`
	Qty          decimal.Decimal  `json:"qty"`
	UnitPrice    *decimal.Decimal `json:"unit_price"` // nil falls back to the period-locked price
	DocRef       string           `json:"doc_ref" validate:"required,max=100"`
	RequestId    string           `json:"request_id" validate:"max=100"` // optional; replays are rejected
	MovementDate time.Time        `json:"movement_date"`
}

// PostReceipt applies an incoming delivery: the position's wac is re-averaged
// with the receipt price and one RCP movement is appended, all in one
// transaction against the open period.
func PostReceipt(ctx context.Context, input *NewReceipt) (*models.Movement, error) {
	logger := config.GetLogger()
	if err := utils.Validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.Qty.IsPositive() {
		return nil, errors.New("receipt qty must be positive")
	}
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return nil, errors.New("unit price cannot be negative")
	}

	var movement *models.Movement
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guardRequestId(tx, "post-receipt", input.RequestId); err != nil {
			return err
		}
		period, err := resolvePostingPeriod(tx, input.LocationId)
		if err != nil {
			return err
		}
		if err := validatePostingItem(tx, input.ItemId); err != nil {
			return err
		}

		var unitCost decimal.Decimal
		if input.UnitPrice != nil {
			unitCost = *input.UnitPrice
		} else {
			unitCost, err = models.GetPeriodPrice(tx, period.ID, input.ItemId)
			if err != nil {
				config.LogError(logger, "receiptWorkflow.go", "PostReceipt", "GetPeriodPrice", input, err)
				return err
			}
		}

		position, err := models.FirstOrCreateStockPosition(tx, input.LocationId, input.ItemId)
		if err != nil {
			config.LogError(logger, "receiptWorkflow.go", "PostReceipt", "FirstOrCreateStockPosition", input, err)
			return err
		}
		err = mutateStockPosition(tx, position, func(p *models.StockPosition) (decimal.Decimal, decimal.Decimal, error) {
			return ReceiptOutcome(p, input.Qty, unitCost)
		})
		if err != nil {
			return err
		}

		movement = newMovement(ctx, models.MovementKindReceipt, input.LocationId, input.ItemId,
			period.ID, input.Qty, unitCost, input.DocRef, input.MovementDate)
		if err := tx.Create(movement).Error; err != nil {
			config.LogError(logger, "receiptWorkflow.go", "PostReceipt", "CreateMovement", movement, err)
			return err
		}

		if err := models.QueueNotification(ctx, tx, models.NotifyEventMovementPosted, "movement", movement.ID, movement); err != nil {
			return err
		}
		if input.RequestId != "" {
			return MarkIdempotencySucceeded(tx, "post-receipt", input.RequestId)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}
