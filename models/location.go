package models

import (
	"context"
	"errors"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"gorm.io/gorm"
)

// Location is a stock-keeping site (camp, warehouse, kitchen). Active
// locations get a LocationPeriodState row whenever a period opens.
type Location struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Code      string    `gorm:"size:20;uniqueIndex;not null" json:"code"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLocation struct {
	Name string `json:"name" validate:"required,max=100"`
	Code string `json:"code" validate:"required,max=20"`
}

func CreateLocation(ctx context.Context, input *NewLocation) (*Location, error) {
	if err := utils.Validate.Struct(input); err != nil {
		return nil, err
	}

	location := Location{
		Name:     input.Name,
		Code:     input.Code,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func GetLocation(ctx context.Context, id int) (*Location, error) {
	return utils.FetchModel[Location](ctx, id)
}

func GetActiveLocations(ctx context.Context) ([]*Location, error) {
	var locations []*Location
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id").
		Find(&locations).Error; err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, errors.New("no active locations")
	}
	return locations, nil
}

// ActiveLocationsTx is the transaction-scoped variant used when opening a
// period, so enrollment sees the same location set the transaction commits.
func ActiveLocationsTx(tx *gorm.DB) ([]*Location, error) {
	var locations []*Location
	if err := tx.Where("is_active = ?", true).
		Order("id").
		Find(&locations).Error; err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, errors.New("no active locations")
	}
	return locations, nil
}

func DeactivateLocation(ctx context.Context, id int) (*Location, error) {
	location, err := utils.FetchModel[Location](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(location).
		Update("is_active", false).Error; err != nil {
		return nil, err
	}
	return location, nil
}
