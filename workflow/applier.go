package workflow

import (
	"context"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxCasAttempts bounds the optimistic retry loop on a stock position.
// Conflicts beyond this surface as ConcurrentUpdateError, safe for the caller
// to retry whole.
const maxCasAttempts = 5

type positionOutcome func(position *models.StockPosition) (newOnHand decimal.Decimal, newWac decimal.Decimal, err error)

// mutateStockPosition runs the outcome against the current position and
// persists it through the revision CAS. On conflict the position is reloaded
// and the outcome recomputed, so domain checks (insufficient stock) always see
// the latest committed state.
func mutateStockPosition(tx *gorm.DB, position *models.StockPosition, outcome positionOutcome) error {
	for attempt := 1; attempt <= maxCasAttempts; attempt++ {
		newOnHand, newWac, err := outcome(position)
		if err != nil {
			return err
		}
		ok, err := models.CompareAndSwapStockPosition(tx, position, newOnHand, newWac)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := models.ReloadStockPosition(tx, position); err != nil {
			return err
		}
	}
	return &models.ConcurrentUpdateError{
		LocationId: position.LocationId,
		ItemId:     position.ItemId,
		Attempts:   maxCasAttempts,
	}
}

func newMovement(ctx context.Context, kind models.MovementKind, locationId int, itemId int, periodId int, qty decimal.Decimal, unitCost decimal.Decimal, docRef string, movementDate time.Time) *models.Movement {
	userId, _ := utils.GetUserIdFromContext(ctx)
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	if movementDate.IsZero() {
		movementDate = time.Now().UTC()
	}
	return &models.Movement{
		ID:            uuid.NewString(),
		Kind:          kind,
		LocationId:    locationId,
		ItemId:        itemId,
		PeriodId:      periodId,
		Qty:           qty,
		UnitCost:      unitCost,
		DocRef:        docRef,
		MovementDate:  movementDate,
		CreatedBy:     userId,
		CorrelationId: correlationId,
	}
}

// validatePostingItem checks the item exists and is active, inside the
// applier's transaction so a concurrent deactivation is seen.
func validatePostingItem(tx *gorm.DB, itemId int) error {
	var count int64
	if err := tx.Model(&models.Item{}).
		Where("id = ? AND is_active = ?", itemId, true).
		Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
