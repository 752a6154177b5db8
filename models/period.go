package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Period is a reporting period. At most one period may be Open or
// PendingClose at a time: ActiveGuard is true only in those states and
// carries a unique index (MySQL permits any number of NULLs), so the
// singleton holds across concurrent service instances.
type Period struct {
	ID          int          `gorm:"primary_key" json:"id"`
	Name        string       `gorm:"size:50;not null" json:"name"`
	StartDate   time.Time    `gorm:"not null" json:"start_date"`
	EndDate     time.Time    `gorm:"not null" json:"end_date"`
	Status      PeriodStatus `gorm:"type:enum('Draft','Open','PendingClose','Closed');default:'Draft';index" json:"status"`
	ActiveGuard *bool        `gorm:"uniqueIndex" json:"-"`
	ClosedAt    *time.Time   `json:"closed_at"`
	ClosedBy    *int         `json:"closed_by"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanTransition is the strictly-forward lifecycle table. reject() is the one
// sanctioned backward edge (PendingClose -> Open).
func (p *Period) CanTransition(to PeriodStatus) bool {
	switch p.Status {
	case PeriodStatusDraft:
		return to == PeriodStatusOpen
	case PeriodStatusOpen:
		return to == PeriodStatusPendingClose
	case PeriodStatusPendingClose:
		return to == PeriodStatusClosed || to == PeriodStatusOpen
	}
	return false
}

// IsPostable reports whether ledger mutations are accepted.
func (p *Period) IsPostable() bool {
	return p.Status == PeriodStatusOpen
}

// SnapshotLine is one item's captured state at a period boundary.
type SnapshotLine struct {
	ItemId int             `json:"item_id"`
	Qty    decimal.Decimal `json:"qty"`
	Wac    decimal.Decimal `json:"wac"`
	Value  decimal.Decimal `json:"value"`
}

// Snapshot is an immutable copy of a location's stock state at a period
// boundary. The closing snapshot additionally folds in the final
// reconciliation figures for permanent audit.
type Snapshot struct {
	CapturedAt     time.Time           `json:"captured_at"`
	TotalValue     decimal.Decimal     `json:"total_value"`
	Lines          []SnapshotLine      `json:"lines"`
	Reconciliation *ReconciliationView `json:"reconciliation,omitempty"`
}

// LocationPeriodState tracks one location's readiness sub-state within a
// period, plus its boundary snapshots. Immutable once the period is Closed.
type LocationPeriodState struct {
	ID              int               `gorm:"primary_key" json:"id"`
	PeriodId        int               `gorm:"index:uniq_location_period,unique;not null" json:"period_id"`
	LocationId      int               `gorm:"index:uniq_location_period,unique;not null" json:"location_id"`
	Readiness       LocationReadiness `gorm:"type:enum('NotReady','Ready');default:'NotReady'" json:"readiness"`
	OpeningSnapshot []byte            `gorm:"type:blob" json:"opening_snapshot"`
	ClosingSnapshot []byte            `gorm:"type:blob" json:"closing_snapshot"`
	ReadyAt         *time.Time        `json:"ready_at"`
	ReadyBy         *int              `json:"ready_by"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *LocationPeriodState) SetOpeningSnapshot(snap *Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.OpeningSnapshot = b
	return nil
}

func (s *LocationPeriodState) SetClosingSnapshot(snap *Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.ClosingSnapshot = b
	return nil
}

func (s *LocationPeriodState) GetOpeningSnapshot() (*Snapshot, error) {
	if len(s.OpeningSnapshot) == 0 {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(s.OpeningSnapshot, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *LocationPeriodState) GetClosingSnapshot() (*Snapshot, error) {
	if len(s.ClosingSnapshot) == 0 {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(s.ClosingSnapshot, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

const currentPeriodCacheKey = "period:current"

// GetActivePeriod returns the single Open/PendingClose period, redis-cached.
// The cache is invalidated on every period transition.
func GetActivePeriod(ctx context.Context) (*Period, error) {
	var cached Period
	exists, err := config.GetRedisObject(currentPeriodCacheKey, &cached)
	if err == nil && exists && cached.ID > 0 {
		return &cached, nil
	}

	db := config.GetDB()
	period, err := getActivePeriodTx(db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	_ = config.SetRedisObject(currentPeriodCacheKey, period, 5*time.Minute)
	return period, nil
}

// getActivePeriodTx reads the active period inside the caller's transaction,
// bypassing the cache. Workflows use this for their period-status re-checks.
func getActivePeriodTx(tx *gorm.DB) (*Period, error) {
	var period Period
	err := tx.Where("status IN ?", []PeriodStatus{PeriodStatusOpen, PeriodStatusPendingClose}).
		First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("no active period")
		}
		return nil, err
	}
	return &period, nil
}

// GetActivePeriodTx is the transaction-scoped active-period read.
func GetActivePeriodTx(tx *gorm.DB) (*Period, error) {
	return getActivePeriodTx(tx)
}

func InvalidateActivePeriodCache() {
	_ = config.RemoveRedisKey(currentPeriodCacheKey)
}

func GetPeriod(ctx context.Context, id int) (*Period, error) {
	var period Period
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("period not found")
		}
		return nil, err
	}
	return &period, nil
}

// LocationStatesForPeriod returns every location sub-state for the period,
// ordered by location for deterministic iteration.
func LocationStatesForPeriod(tx *gorm.DB, periodId int) ([]*LocationPeriodState, error) {
	var states []*LocationPeriodState
	if err := tx.Where("period_id = ?", periodId).
		Order("location_id").
		Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

// NotReadyLocations evaluates the readiness barrier as a derived predicate:
// the ids of locations still NotReady, computed transactionally. Empty means
// the barrier is satisfied.
func NotReadyLocations(tx *gorm.DB, periodId int) ([]int, error) {
	var locationIds []int
	if err := tx.Model(&LocationPeriodState{}).
		Where("period_id = ? AND readiness = ?", periodId, LocationReadinessNotReady).
		Order("location_id").
		Pluck("location_id", &locationIds).Error; err != nil {
		return nil, err
	}
	return locationIds, nil
}

// GetLocationPeriodState returns the sub-state row for (period, location).
func GetLocationPeriodState(tx *gorm.DB, periodId int, locationId int) (*LocationPeriodState, error) {
	var state LocationPeriodState
	err := tx.Where("period_id = ? AND location_id = ?", periodId, locationId).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("location has no state for this period")
		}
		return nil, err
	}
	return &state, nil
}
