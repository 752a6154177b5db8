package workflow

import (
	"context"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NewConsumption struct {
	LocationId   int             `json:"location_id" validate:"required"`
	ItemId       int             `json:"item_id" validate:"required"`
	Qty          decimal.Decimal `json:"qty"`
	DocRef       string          `json:"doc_ref" validate:"required,max=100"`
	RequestId    string          `json:"request_id" validate:"max=100"`
	MovementDate time.Time       `json:"movement_date"`
}

// PostConsumption issues stock at the current wac. Issues never recompute wac;
// the movement carries the wac in force when the CAS succeeded. Fails with
// InsufficientStock when qty exceeds on-hand, leaving the position untouched.
func PostConsumption(ctx context.Context, input *NewConsumption) (*models.Movement, error) {
	logger := config.GetLogger()
	if err := utils.Validate.Struct(input); err != nil {
		return nil, err
	}

	var movement *models.Movement
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guardRequestId(tx, "post-consumption", input.RequestId); err != nil {
			return err
		}
		period, err := resolvePostingPeriod(tx, input.LocationId)
		if err != nil {
			return err
		}
		if err := validatePostingItem(tx, input.ItemId); err != nil {
			return err
		}

		position, err := models.FirstOrCreateStockPosition(tx, input.LocationId, input.ItemId)
		if err != nil {
			config.LogError(logger, "consumptionWorkflow.go", "PostConsumption", "FirstOrCreateStockPosition", input, err)
			return err
		}

		var unitCostUsed decimal.Decimal
		err = mutateStockPosition(tx, position, func(p *models.StockPosition) (decimal.Decimal, decimal.Decimal, error) {
			newOnHand, newWac, unitCost, err := IssueOutcome(p, input.Qty)
			if err != nil {
				return decimal.Zero, decimal.Zero, err
			}
			unitCostUsed = unitCost
			return newOnHand, newWac, nil
		})
		if err != nil {
			return err
		}

		movement = newMovement(ctx, models.MovementKindConsumption, input.LocationId, input.ItemId,
			period.ID, input.Qty.Neg(), unitCostUsed, input.DocRef, input.MovementDate)
		if err := tx.Create(movement).Error; err != nil {
			config.LogError(logger, "consumptionWorkflow.go", "PostConsumption", "CreateMovement", movement, err)
			return err
		}

		if err := models.QueueNotification(ctx, tx, models.NotifyEventMovementPosted, "movement", movement.ID, movement); err != nil {
			return err
		}
		if input.RequestId != "" {
			return MarkIdempotencySucceeded(tx, "post-consumption", input.RequestId)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}
