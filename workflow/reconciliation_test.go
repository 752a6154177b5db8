package workflow

import (
	"errors"
	"testing"

	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/shopspring/decimal"
)

func closing(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestConsumptionFigures_WorkedExample(t *testing.T) {
	r := &models.Reconciliation{
		PeriodId:          1,
		LocationId:        1,
		OpeningValue:      dec("12000"),
		ReceiptsValue:     dec("45000"),
		TransfersInValue:  dec("5000"),
		TransfersOutValue: dec("3000"),
		ClosingValue:      closing("11500"),
		BackCharges:       dec("300"),
		Credits:           dec("800"),
		Condemnations:     dec("200"),
		ActivityCount:     dec("1350"),
	}
	if err := ConsumptionFigures(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Consumption.Equal(dec("47200")) {
		t.Fatalf("consumption = %s, want 47200", r.Consumption)
	}
	if r.UnitCost == nil {
		t.Fatal("unit cost is nil, want a value")
	}
	// 47200 / 1350 = 34.96296... -> 34.9630 at 4dp
	if !r.UnitCost.Equal(dec("34.9630")) {
		t.Fatalf("unit cost = %s, want 34.9630", r.UnitCost)
	}
}

func TestConsumptionFigures_OtherAdjustmentsSign(t *testing.T) {
	r := &models.Reconciliation{
		OpeningValue:     dec("100"),
		ClosingValue:     closing("50"),
		OtherAdjustments: dec("-10"),
		ActivityCount:    dec("4"),
	}
	if err := ConsumptionFigures(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Consumption.Equal(dec("40")) {
		t.Fatalf("consumption = %s, want 40", r.Consumption)
	}
	if !r.UnitCost.Equal(dec("10")) {
		t.Fatalf("unit cost = %s, want 10", r.UnitCost)
	}
}

func TestConsumptionFigures_ZeroActivityReportsUnavailable(t *testing.T) {
	r := &models.Reconciliation{
		OpeningValue: dec("100"),
		ClosingValue: closing("40"),
	}
	if err := ConsumptionFigures(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Consumption.Equal(dec("60")) {
		t.Fatalf("consumption = %s, want 60", r.Consumption)
	}
	if r.UnitCost != nil {
		t.Fatalf("unit cost = %s, want nil for zero activity", r.UnitCost)
	}
}

func TestConsumptionFigures_ClosingValueRequired(t *testing.T) {
	r := &models.Reconciliation{PeriodId: 3, LocationId: 9}
	err := ConsumptionFigures(r)
	var missing *models.ClosingValueMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want ClosingValueMissingError", err)
	}
	if missing.PeriodId != 3 || missing.LocationId != 9 {
		t.Fatalf("error fields = %+v", missing)
	}
}
