package utils

import (
	"context"
	"errors"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var Validate = validator.New()

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func ProcessValidationErrors(err error) map[string]string {
	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// FetchModel loads a record by primary key, mapping gorm's not-found to the
// shared sentinel.
func FetchModel[T any](ctx context.Context, id int) (*T, error) {
	var model T
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &model, nil
}
