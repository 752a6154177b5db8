package workflow

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"gorm.io/gorm"
)

type NewPeriod struct {
	Name            string    `json:"name" validate:"required,max=50"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required"`
	OpenImmediately bool      `json:"open_immediately"`
}

// CreatePeriod creates a Draft period, optionally opening it in the same
// transaction. Opening enrolls every active location and freezes item prices.
func CreatePeriod(ctx context.Context, input *NewPeriod) (*models.Period, error) {
	logger := config.GetLogger()
	if err := utils.Validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, errors.New("end date must be after start date")
	}

	period := &models.Period{
		Name:      input.Name,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Status:    models.PeriodStatusDraft,
	}
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(period).Error; err != nil {
			config.LogError(logger, "periodWorkflow.go", "CreatePeriod", "Create", input, err)
			return err
		}
		if input.OpenImmediately {
			return openPeriodTx(ctx, tx, period)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if input.OpenImmediately {
		models.InvalidateActivePeriodCache()
	}
	return period, nil
}

// OpenPeriod transitions Draft -> Open. The ActiveGuard unique index makes a
// second concurrent open fail at commit rather than produce two active periods.
func OpenPeriod(ctx context.Context, periodId int) (*models.Period, error) {
	var period models.Period
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", periodId).First(&period).Error; err != nil {
			return err
		}
		return openPeriodTx(ctx, tx, &period)
	})
	if err != nil {
		return nil, err
	}
	models.InvalidateActivePeriodCache()
	return &period, nil
}

func openPeriodTx(ctx context.Context, tx *gorm.DB, period *models.Period) error {
	logger := config.GetLogger()

	if !period.CanTransition(models.PeriodStatusOpen) {
		return &models.InvalidPeriodTransitionError{
			PeriodId: period.ID,
			From:     period.Status,
			To:       models.PeriodStatusOpen,
		}
	}

	period.Status = models.PeriodStatusOpen
	period.ActiveGuard = utils.NewTrue()
	if err := tx.Save(period).Error; err != nil {
		config.LogError(logger, "periodWorkflow.go", "openPeriodTx", "Save", period, err)
		return err
	}

	locations, err := models.ActiveLocationsTx(tx)
	if err != nil {
		return err
	}
	for _, location := range locations {
		if err := enrollLocation(tx, period.ID, location.ID); err != nil {
			config.LogError(logger, "periodWorkflow.go", "openPeriodTx", "enrollLocation", location.ID, err)
			return err
		}
	}

	if err := models.LockItemPrices(tx, period.ID); err != nil {
		config.LogError(logger, "periodWorkflow.go", "openPeriodTx", "LockItemPrices", period.ID, err)
		return err
	}

	return models.QueueNotification(ctx, tx, models.NotifyEventPeriodOpened, "period", strconv.Itoa(period.ID), period)
}

// enrollLocation creates the location's sub-state for the period with an
// opening snapshot of its current positions (the rolled-forward balances).
func enrollLocation(tx *gorm.DB, periodId int, locationId int) error {
	var count int64
	if err := tx.Model(&models.LocationPeriodState{}).
		Where("period_id = ? AND location_id = ?", periodId, locationId).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	snapshot, err := captureSnapshot(tx, locationId)
	if err != nil {
		return err
	}
	state := &models.LocationPeriodState{
		PeriodId:   periodId,
		LocationId: locationId,
		Readiness:  models.LocationReadinessNotReady,
	}
	if err := state.SetOpeningSnapshot(snapshot); err != nil {
		return err
	}
	return tx.Create(state).Error
}

// captureSnapshot freezes a location's current positions. Empty positions are
// omitted; they carry no value and no wac.
func captureSnapshot(tx *gorm.DB, locationId int) (*models.Snapshot, error) {
	positions, err := models.ListStockPositions(tx, locationId)
	if err != nil {
		return nil, err
	}
	snapshot := &models.Snapshot{
		CapturedAt: time.Now().UTC(),
	}
	for _, position := range positions {
		if position.OnHand.IsZero() {
			continue
		}
		value := position.Value()
		snapshot.Lines = append(snapshot.Lines, models.SnapshotLine{
			ItemId: position.ItemId,
			Qty:    position.OnHand,
			Wac:    position.Wac,
			Value:  value,
		})
		snapshot.TotalValue = snapshot.TotalValue.Add(value)
	}
	return snapshot, nil
}

// MarkLocationReady recomputes the location's reconciliation and, when it is
// complete, flips the location to Ready. Readiness is per location; posting
// for other locations continues until the close is requested.
func MarkLocationReady(ctx context.Context, periodId int, locationId int) (*models.LocationPeriodState, error) {
	logger := config.GetLogger()
	userId, _ := utils.GetUserIdFromContext(ctx)

	var state *models.LocationPeriodState
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		period, err := models.GetActivePeriodTx(tx)
		if err != nil {
			return err
		}
		if period.ID != periodId || period.Status != models.PeriodStatusOpen {
			return &models.PeriodLockedError{PeriodId: periodId, LocationId: locationId, Status: period.Status}
		}

		reconciliation, err := computeReconciliationTx(tx, periodId, locationId)
		if err != nil {
			return err
		}
		if reconciliation.ClosingValue == nil {
			return &models.ClosingValueMissingError{PeriodId: periodId, LocationId: locationId}
		}
		if !reconciliation.IsComplete() {
			return &models.ReconciliationIncompleteError{
				PeriodId:     periodId,
				LocationId:   locationId,
				MissingField: "computed_at",
			}
		}

		state, err = models.GetLocationPeriodState(tx, periodId, locationId)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		state.Readiness = models.LocationReadinessReady
		state.ReadyAt = &now
		state.ReadyBy = &userId
		if err := tx.Save(state).Error; err != nil {
			config.LogError(logger, "periodWorkflow.go", "MarkLocationReady", "Save", state, err)
			return err
		}

		return models.QueueNotification(ctx, tx, models.NotifyEventLocationReady, "location_period_state", strconv.Itoa(state.ID), state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// RequestPeriodClose checks the readiness barrier, creates the Pending
// approval, and freezes posting by moving the period to PendingClose.
func RequestPeriodClose(ctx context.Context, periodId int) (*models.Approval, error) {
	logger := config.GetLogger()
	userId, _ := utils.GetUserIdFromContext(ctx)

	var approval *models.Approval
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var period models.Period
		if err := tx.Where("id = ?", periodId).First(&period).Error; err != nil {
			return err
		}

		// A repeated request while the first approval is still open reports
		// the existing approval, not a transition failure.
		entityId := strconv.Itoa(periodId)
		if pending, err := models.PendingApproval(tx, models.ApprovalEntityTypePeriodClose, entityId); err != nil {
			return err
		} else if pending != nil {
			return &models.ApprovalAlreadyExistsError{PeriodId: periodId, ApprovalId: pending.ID}
		}

		if !period.CanTransition(models.PeriodStatusPendingClose) {
			return &models.InvalidPeriodTransitionError{
				PeriodId: period.ID,
				From:     period.Status,
				To:       models.PeriodStatusPendingClose,
			}
		}

		notReady, err := models.NotReadyLocations(tx, periodId)
		if err != nil {
			return err
		}
		if len(notReady) > 0 {
			return &models.LocationsNotReadyError{PeriodId: periodId, NotReadyLocations: notReady}
		}

		approval = &models.Approval{
			EntityType:  models.ApprovalEntityTypePeriodClose,
			EntityId:    entityId,
			Status:      models.ApprovalStatusPending,
			RequestedBy: userId,
			RequestedAt: time.Now().UTC(),
		}
		if err := tx.Create(approval).Error; err != nil {
			config.LogError(logger, "periodWorkflow.go", "RequestPeriodClose", "CreateApproval", approval, err)
			return err
		}

		period.Status = models.PeriodStatusPendingClose
		if err := tx.Save(&period).Error; err != nil {
			config.LogError(logger, "periodWorkflow.go", "RequestPeriodClose", "Save", period, err)
			return err
		}

		return models.QueueNotification(ctx, tx, models.NotifyEventCloseRequested, "approval", strconv.Itoa(approval.ID), approval)
	})
	if err != nil {
		return nil, err
	}
	models.InvalidateActivePeriodCache()
	return approval, nil
}

// RejectPeriodClose resolves the approval as Rejected and reopens the period.
// Location readiness is kept; corrections posted after reopening are expected
// to be followed by fresh readiness checks before the next close request.
func RejectPeriodClose(ctx context.Context, approvalId int, comments string) (*models.Period, error) {
	logger := config.GetLogger()
	userId, _ := utils.GetUserIdFromContext(ctx)

	var period models.Period
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		approval, err := models.GetApproval(tx, approvalId)
		if err != nil {
			return err
		}
		if err := approval.Resolve(tx, models.ApprovalStatusRejected, userId, comments); err != nil {
			return err
		}

		periodId, err := strconv.Atoi(approval.EntityId)
		if err != nil {
			return err
		}
		if err := tx.Where("id = ?", periodId).First(&period).Error; err != nil {
			return err
		}
		if !period.CanTransition(models.PeriodStatusOpen) {
			return &models.InvalidPeriodTransitionError{
				PeriodId: period.ID,
				From:     period.Status,
				To:       models.PeriodStatusOpen,
			}
		}
		period.Status = models.PeriodStatusOpen
		if err := tx.Save(&period).Error; err != nil {
			config.LogError(logger, "periodWorkflow.go", "RejectPeriodClose", "Save", period, err)
			return err
		}

		return models.QueueNotification(ctx, tx, models.NotifyEventCloseRejected, "period", approval.EntityId, period)
	})
	if err != nil {
		return nil, err
	}
	models.InvalidateActivePeriodCache()
	return &period, nil
}
