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

type NewTransfer struct {
	FromLocationId int             `json:"from_location_id" validate:"required"`
	ToLocationId   int             `json:"to_location_id" validate:"required"`
	ItemId         int             `json:"item_id" validate:"required"`
	Qty            decimal.Decimal `json:"qty"`
	DocRef         string          `json:"doc_ref" validate:"required,max=100"`
	RequestId      string          `json:"request_id" validate:"max=100"`
	MovementDate   time.Time       `json:"movement_date"`
}

// PostTransfer moves stock between locations in one transaction: an issue at
// the source and a receipt at the destination priced at the source wac, so
// value is conserved across the pair. The TRO/TRI movements share the doc ref.
//
// Both position rows are X-locked in ascending locationId order before either
// is mutated, regardless of transfer direction, so two opposing transfers
// serialize instead of deadlocking.
func PostTransfer(ctx context.Context, input *NewTransfer) (*models.Movement, *models.Movement, error) {
	logger := config.GetLogger()
	if err := utils.Validate.Struct(input); err != nil {
		return nil, nil, err
	}
	if input.FromLocationId == input.ToLocationId {
		return nil, nil, &models.InvalidLocationPairError{LocationId: input.FromLocationId}
	}

	var outMovement, inMovement *models.Movement
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guardRequestId(tx, "post-transfer", input.RequestId); err != nil {
			return err
		}
		period, err := resolvePostingPeriod(tx, input.FromLocationId)
		if err != nil {
			return err
		}
		if _, err := resolvePostingPeriod(tx, input.ToLocationId); err != nil {
			return err
		}
		if err := validatePostingItem(tx, input.ItemId); err != nil {
			return err
		}

		first, second := input.FromLocationId, input.ToLocationId
		if second < first {
			first, second = second, first
		}
		positions := map[int]*models.StockPosition{}
		for _, locationId := range []int{first, second} {
			position, err := models.FirstOrCreateStockPosition(tx, locationId, input.ItemId)
			if err != nil {
				config.LogError(logger, "transferWorkflow.go", "PostTransfer", "FirstOrCreateStockPosition", locationId, err)
				return err
			}
			positions[locationId] = position
		}
		// The locking reads fix the global lock order; the CAS updates below
		// then run against rows this transaction already holds.
		for _, locationId := range []int{first, second} {
			if err := models.ReloadStockPosition(tx, positions[locationId]); err != nil {
				return err
			}
		}

		var sourceWac decimal.Decimal
		err = mutateStockPosition(tx, positions[input.FromLocationId], func(p *models.StockPosition) (decimal.Decimal, decimal.Decimal, error) {
			newOnHand, newWac, unitCost, err := IssueOutcome(p, input.Qty)
			if err != nil {
				return decimal.Zero, decimal.Zero, err
			}
			sourceWac = unitCost
			return newOnHand, newWac, nil
		})
		if err != nil {
			return err
		}

		err = mutateStockPosition(tx, positions[input.ToLocationId], func(p *models.StockPosition) (decimal.Decimal, decimal.Decimal, error) {
			return ReceiptOutcome(p, input.Qty, sourceWac)
		})
		if err != nil {
			return err
		}

		outMovement = newMovement(ctx, models.MovementKindTransferOut, input.FromLocationId, input.ItemId,
			period.ID, input.Qty.Neg(), sourceWac, input.DocRef, input.MovementDate)
		inMovement = newMovement(ctx, models.MovementKindTransferIn, input.ToLocationId, input.ItemId,
			period.ID, input.Qty, sourceWac, input.DocRef, input.MovementDate)
		if err := tx.Create(outMovement).Error; err != nil {
			config.LogError(logger, "transferWorkflow.go", "PostTransfer", "CreateMovement TRO", outMovement, err)
			return err
		}
		if err := tx.Create(inMovement).Error; err != nil {
			config.LogError(logger, "transferWorkflow.go", "PostTransfer", "CreateMovement TRI", inMovement, err)
			return err
		}

		if err := models.QueueNotification(ctx, tx, models.NotifyEventMovementPosted, "movement", outMovement.ID, outMovement); err != nil {
			return err
		}
		if err := models.QueueNotification(ctx, tx, models.NotifyEventMovementPosted, "movement", inMovement.ID, inMovement); err != nil {
			return err
		}
		if input.RequestId != "" {
			return MarkIdempotencySucceeded(tx, "post-transfer", input.RequestId)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return outMovement, inMovement, nil
}
