package workflow

import (
	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"gorm.io/gorm"
)

// resolvePostingPeriod re-checks the posting gate inside the applier's
// transaction: the active period must be Open and the location must be
// enrolled in it. Checking transactionally closes the race against a close
// flipping the period to PendingClose mid-post.
func resolvePostingPeriod(tx *gorm.DB, locationId int) (*models.Period, error) {
	period, err := models.GetActivePeriodTx(tx)
	if err != nil {
		return nil, &models.PeriodLockedError{LocationId: locationId}
	}
	if !period.IsPostable() {
		return nil, &models.PeriodLockedError{
			PeriodId:   period.ID,
			LocationId: locationId,
			Status:     period.Status,
		}
	}
	if _, err := models.GetLocationPeriodState(tx, period.ID, locationId); err != nil {
		return nil, err
	}
	return period, nil
}
