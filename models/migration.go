package models

import (
	"log"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Location{}, &Item{}, &ItemPeriodPrice{},
		&StockPosition{}, &Movement{},
		&Period{}, &LocationPeriodState{},
		&Reconciliation{},
		&Approval{},
		&NotificationRecord{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
