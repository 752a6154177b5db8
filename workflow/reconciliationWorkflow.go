package workflow

import (
	"context"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"gorm.io/gorm"
)

// ConsumptionFigures derives consumption and cost-per-activity from a
// reconciliation row. Pure; the row must already carry its aggregated values.
//
//	consumption = opening + receipts + transfersIn - transfersOut - closing
//	            + backCharges - credits + condemnations + otherAdjustments
//
// unitCost is nil when activityCount is zero (unavailable, not an error).
func ConsumptionFigures(r *models.Reconciliation) error {
	if r.ClosingValue == nil {
		return &models.ClosingValueMissingError{PeriodId: r.PeriodId, LocationId: r.LocationId}
	}
	consumption := r.OpeningValue.
		Add(r.ReceiptsValue).
		Add(r.TransfersInValue).
		Sub(r.TransfersOutValue).
		Sub(*r.ClosingValue).
		Add(r.BackCharges).
		Sub(r.Credits).
		Add(r.Condemnations).
		Add(r.OtherAdjustments)
	r.Consumption = utils.Quantize(consumption)
	r.UnitCost = utils.SafeDiv(r.Consumption, r.ActivityCount)
	return nil
}

// computeReconciliationTx refreshes the aggregated values for
// (period, location) from the movement ledger and the opening snapshot, then
// re-derives consumption when a closing value is present. Manual inputs on the
// row are preserved.
func computeReconciliationTx(tx *gorm.DB, periodId int, locationId int) (*models.Reconciliation, error) {
	logger := config.GetLogger()

	reconciliation, err := models.FirstOrCreateReconciliation(tx, periodId, locationId)
	if err != nil {
		config.LogError(logger, "reconciliationWorkflow.go", "computeReconciliationTx", "FirstOrCreateReconciliation", locationId, err)
		return nil, err
	}

	state, err := models.GetLocationPeriodState(tx, periodId, locationId)
	if err != nil {
		return nil, err
	}
	opening, err := state.GetOpeningSnapshot()
	if err != nil {
		return nil, err
	}
	if opening != nil {
		reconciliation.OpeningValue = opening.TotalValue
	}

	totals, err := models.AggregateMovements(tx, periodId, locationId)
	if err != nil {
		config.LogError(logger, "reconciliationWorkflow.go", "computeReconciliationTx", "AggregateMovements", locationId, err)
		return nil, err
	}
	reconciliation.ReceiptsValue = totals.ReceiptsValue
	reconciliation.IssuesValue = totals.IssuesValue
	reconciliation.TransfersInValue = totals.TransfersInValue
	reconciliation.TransfersOutValue = totals.TransfersOutValue

	if reconciliation.ClosingValue != nil {
		if err := ConsumptionFigures(reconciliation); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	reconciliation.ComputedAt = &now

	if err := tx.Save(reconciliation).Error; err != nil {
		config.LogError(logger, "reconciliationWorkflow.go", "computeReconciliationTx", "Save", reconciliation, err)
		return nil, err
	}
	return reconciliation, nil
}

// ComputeReconciliation re-aggregates the reconciliation for
// (period, location). Callable any time before the period closes.
func ComputeReconciliation(ctx context.Context, periodId int, locationId int) (*models.Reconciliation, error) {
	var reconciliation *models.Reconciliation
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		period, err := requireMutablePeriod(tx, periodId)
		if err != nil {
			return err
		}
		reconciliation, err = computeReconciliationTx(tx, period.ID, locationId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reconciliation, nil
}

// SaveReconciliationAdjustments stores the manual adjustment set and the
// physical closing value, then recomputes the derived figures.
func SaveReconciliationAdjustments(ctx context.Context, periodId int, locationId int, input *models.ReconciliationAdjustments) (*models.Reconciliation, error) {
	logger := config.GetLogger()

	var reconciliation *models.Reconciliation
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		period, err := requireMutablePeriod(tx, periodId)
		if err != nil {
			return err
		}

		reconciliation, err = models.FirstOrCreateReconciliation(tx, period.ID, locationId)
		if err != nil {
			config.LogError(logger, "reconciliationWorkflow.go", "SaveReconciliationAdjustments", "FirstOrCreateReconciliation", locationId, err)
			return err
		}
		reconciliation.BackCharges = input.BackCharges
		reconciliation.Credits = input.Credits
		reconciliation.Condemnations = input.Condemnations
		reconciliation.OtherAdjustments = input.OtherAdjustments
		reconciliation.ClosingValue = input.ClosingValue
		reconciliation.ActivityCount = input.ActivityCount
		if err := tx.Save(reconciliation).Error; err != nil {
			config.LogError(logger, "reconciliationWorkflow.go", "SaveReconciliationAdjustments", "Save", reconciliation, err)
			return err
		}

		reconciliation, err = computeReconciliationTx(tx, period.ID, locationId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reconciliation, nil
}

// requireMutablePeriod loads the period and rejects reconciliation writes once
// it is Closed.
func requireMutablePeriod(tx *gorm.DB, periodId int) (*models.Period, error) {
	var period models.Period
	if err := tx.Where("id = ?", periodId).First(&period).Error; err != nil {
		return nil, err
	}
	if period.Status == models.PeriodStatusClosed {
		return nil, &models.PeriodLockedError{PeriodId: period.ID, Status: period.Status}
	}
	return &period, nil
}
