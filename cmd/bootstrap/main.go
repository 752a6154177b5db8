// bootstrap migrates the schema and opens the first reporting period when no
// active period exists yet.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/bootstrap
//
// The period covers the current calendar month unless PERIOD_START / PERIOD_END
// (YYYY-MM-DD) override it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"github.com/alkholigroup2020/stock-management-system-sub004/workflow"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry()

	models.MigrateTable()
	fmt.Println("schema migrated")

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Bootstrap")

	// Opening a period enrolls every active location; make sure at least one
	// exists on a fresh database.
	if _, err := models.GetActiveLocations(ctx); err != nil {
		location, err := models.CreateLocation(ctx, &models.NewLocation{Name: "Main Store", Code: "MAIN"})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed default location: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("seeded default location %s (id=%d)\n", location.Code, location.ID)
	}

	if period, err := models.GetActivePeriod(ctx); err == nil {
		fmt.Printf("active period already exists: %s (id=%d status=%s)\n", period.Name, period.ID, period.Status)
		return
	}

	start, end, err := periodBounds()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid period bounds: %v\n", err)
		os.Exit(1)
	}

	period, err := workflow.CreatePeriod(ctx, &workflow.NewPeriod{
		Name:            start.Format("2006-01"),
		StartDate:       start,
		EndDate:         end,
		OpenImmediately: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open first period: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("opened period %s (id=%d)\n", period.Name, period.ID)
}

func periodBounds() (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)

	if v := os.Getenv("PERIOD_START"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	if v := os.Getenv("PERIOD_END"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
	}
	return start, end, nil
}
