package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Approval is a generic approval gate. EntityType/EntityId identify what is
// being approved; for period closes EntityId is the period id. At most one
// Pending approval may exist per entity, enforced transactionally by the
// requesting workflow.
type Approval struct {
	ID          int                `gorm:"primary_key" json:"id"`
	EntityType  ApprovalEntityType `gorm:"type:enum('PeriodClose','PriceRevision','ManualWriteOff');not null;index:idx_approval_entity,priority:1" json:"entity_type"`
	EntityId    string             `gorm:"size:64;not null;index:idx_approval_entity,priority:2" json:"entity_id"`
	Status      ApprovalStatus     `gorm:"type:enum('Pending','Approved','Rejected');default:'Pending';index" json:"status"`
	RequestedBy int                `gorm:"not null" json:"requested_by"`
	RequestedAt time.Time          `gorm:"not null" json:"requested_at"`
	ReviewedBy  *int               `json:"reviewed_by"`
	ReviewedAt  *time.Time         `json:"reviewed_at"`
	Comments    string             `gorm:"size:500" json:"comments"`
	CreatedAt   time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// PendingApproval returns the Pending approval for an entity, or nil when none
// exists.
func PendingApproval(tx *gorm.DB, entityType ApprovalEntityType, entityId string) (*Approval, error) {
	var approval Approval
	err := tx.Where("entity_type = ? AND entity_id = ? AND status = ?",
		entityType, entityId, ApprovalStatusPending).
		First(&approval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &approval, nil
}

// GetApproval loads an approval by id inside the caller's transaction.
func GetApproval(tx *gorm.DB, id int) (*Approval, error) {
	var approval Approval
	if err := tx.Where("id = ?", id).First(&approval).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("approval not found")
		}
		return nil, err
	}
	return &approval, nil
}

// Resolve records the reviewer's decision. Only Pending approvals resolve;
// anything else is a stale actor losing a race.
func (a *Approval) Resolve(tx *gorm.DB, status ApprovalStatus, reviewerId int, comments string) error {
	if a.Status != ApprovalStatusPending {
		return &ApprovalNotPendingError{ApprovalId: a.ID, Status: a.Status}
	}
	now := time.Now().UTC()
	result := tx.Model(&Approval{}).
		Where("id = ? AND status = ?", a.ID, ApprovalStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerId,
			"reviewed_at": &now,
			"comments":    comments,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &ApprovalNotPendingError{ApprovalId: a.ID, Status: a.Status}
	}
	a.Status = status
	a.ReviewedBy = &reviewerId
	a.ReviewedAt = &now
	a.Comments = comments
	return nil
}
