package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
)

// ApprovePeriodClose resolves the Pending approval and executes the close as
// one atomic unit: re-validate readiness, freeze a closing snapshot per
// location, mark the period Closed, and open the successor with the balances
// rolled forward. Either everything commits or nothing does, so a retry after
// an infrastructure failure is safe (re-validation finds the approval already
// resolved and stops).
//
// Cross-instance serialization is belt and braces: a redis lock keeps a second
// approver out early, and the MySQL advisory lock guards the close window on
// the posting connection itself.
func ApprovePeriodClose(ctx context.Context, approvalId int, comments string) (*models.Period, *models.Period, error) {
	userId, _ := utils.GetUserIdFromContext(ctx)

	redisLock, err := config.GetRedisLock().Obtain(ctx,
		fmt.Sprintf("lock:approval:%d", approvalId), time.Minute, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, nil, fmt.Errorf("close already in progress for approval %d", approvalId)
	} else if err != nil {
		return nil, nil, err
	}
	defer redisLock.Release(context.Background())

	var closedPeriod, successor *models.Period
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		approval, err := models.GetApproval(tx, approvalId)
		if err != nil {
			return err
		}
		periodId, err := strconv.Atoi(approval.EntityId)
		if err != nil {
			return err
		}

		if err := AcquirePeriodCloseLock(tx, periodId); err != nil {
			return err
		}
		defer ReleasePeriodCloseLock(tx, periodId)

		if err := approval.Resolve(tx, models.ApprovalStatusApproved, userId, comments); err != nil {
			return err
		}

		closedPeriod, successor, err = executeClose(ctx, tx, periodId, userId)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	models.InvalidateActivePeriodCache()
	return closedPeriod, successor, nil
}

// executeClose runs inside the approval transaction, after the approval has
// been resolved and the advisory lock taken. Returns the closed period and the
// successor opened in its place.
func executeClose(ctx context.Context, tx *gorm.DB, periodId int, userId int) (*models.Period, *models.Period, error) {
	logger := config.GetLogger()

	var period models.Period
	if err := tx.Where("id = ?", periodId).First(&period).Error; err != nil {
		return nil, nil, err
	}
	if !period.CanTransition(models.PeriodStatusClosed) {
		return nil, nil, &models.InvalidPeriodTransitionError{
			PeriodId: period.ID,
			From:     period.Status,
			To:       models.PeriodStatusClosed,
		}
	}

	// Re-validate the barrier; readiness may have been disturbed between the
	// request and the approval.
	notReady, err := models.NotReadyLocations(tx, periodId)
	if err != nil {
		return nil, nil, err
	}
	if len(notReady) > 0 {
		return nil, nil, &models.LocationsNotReadyError{PeriodId: periodId, NotReadyLocations: notReady}
	}

	states, err := models.LocationStatesForPeriod(tx, periodId)
	if err != nil {
		return nil, nil, err
	}
	for _, state := range states {
		reconciliation, err := computeReconciliationTx(tx, periodId, state.LocationId)
		if err != nil {
			return nil, nil, err
		}
		if !reconciliation.IsComplete() {
			return nil, nil, &models.ClosingValueMissingError{PeriodId: periodId, LocationId: state.LocationId}
		}

		snapshot, err := captureSnapshot(tx, state.LocationId)
		if err != nil {
			return nil, nil, err
		}
		snapshot.Reconciliation = reconciliation.View()
		if err := state.SetClosingSnapshot(snapshot); err != nil {
			return nil, nil, err
		}
		if err := tx.Save(state).Error; err != nil {
			config.LogError(logger, "closeWorkflow.go", "executeClose", "SaveState", state, err)
			return nil, nil, err
		}
	}

	now := time.Now().UTC()
	period.Status = models.PeriodStatusClosed
	period.ActiveGuard = nil
	period.ClosedAt = &now
	period.ClosedBy = &userId
	if err := tx.Save(&period).Error; err != nil {
		config.LogError(logger, "closeWorkflow.go", "executeClose", "SavePeriod", period, err)
		return nil, nil, err
	}
	if err := models.QueueNotification(ctx, tx, models.NotifyEventPeriodClosed, "period", strconv.Itoa(period.ID), period); err != nil {
		return nil, nil, err
	}

	successor, err := openSuccessorPeriod(ctx, tx, &period)
	if err != nil {
		return nil, nil, err
	}
	return &period, successor, nil
}

// openSuccessorPeriod opens the next calendar month in the same transaction as
// the close, so there is never a gap with no postable period. Positions are
// untouched; the successor's opening snapshots are simply the current
// rolled-forward balances.
func openSuccessorPeriod(ctx context.Context, tx *gorm.DB, closed *models.Period) (*models.Period, error) {
	start := closed.EndDate.AddDate(0, 0, 1)
	end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)

	successor := &models.Period{
		Name:      start.Format("2006-01"),
		StartDate: start,
		EndDate:   end,
		Status:    models.PeriodStatusDraft,
	}
	if err := tx.Create(successor).Error; err != nil {
		return nil, err
	}
	if err := openPeriodTx(ctx, tx, successor); err != nil {
		return nil, err
	}
	return successor, nil
}
