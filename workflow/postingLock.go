package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquirePeriodCloseLock serializes the close window per period across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the close transaction.
func AcquirePeriodCloseLock(tx *gorm.DB, periodId int) error {
	lockName := fmt.Sprintf("period-close:%d", periodId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire close lock for period_id=%d", periodId)
	}
	return nil
}

func ReleasePeriodCloseLock(tx *gorm.DB, periodId int) {
	lockName := fmt.Sprintf("period-close:%d", periodId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
