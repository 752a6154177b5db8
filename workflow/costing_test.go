package workflow

import (
	"errors"
	"testing"

	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func position(onHand, wac string) *models.StockPosition {
	return &models.StockPosition{
		LocationId: 1,
		ItemId:     1,
		OnHand:     dec(onHand),
		Wac:        dec(wac),
	}
}

func TestReceiptOutcome_EmptyPositionTakesReceiptPrice(t *testing.T) {
	onHand, wac, err := ReceiptOutcome(position("0", "0"), dec("10"), dec("5.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !onHand.Equal(dec("10")) {
		t.Fatalf("on_hand = %s, want 10", onHand)
	}
	if !wac.Equal(dec("5.00")) {
		t.Fatalf("wac = %s, want 5.00 exactly", wac)
	}
}

func TestReceiptOutcome_Averages(t *testing.T) {
	onHand, wac, err := ReceiptOutcome(position("10", "2.00"), dec("10"), dec("4.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !onHand.Equal(dec("20")) {
		t.Fatalf("on_hand = %s, want 20", onHand)
	}
	if !wac.Equal(dec("3.00")) {
		t.Fatalf("wac = %s, want 3.00", wac)
	}
}

func TestReceiptOutcome_SamePriceLeavesWacUnchanged(t *testing.T) {
	_, wac, err := ReceiptOutcome(position("7", "2.5000"), dec("3"), dec("2.5000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !wac.Equal(dec("2.5000")) {
		t.Fatalf("wac = %s, want unchanged 2.5000", wac)
	}
}

func TestReceiptOutcome_RoundsToLedgerScale(t *testing.T) {
	// (1*1 + 2*2) / 3 = 1.6666... -> 1.6667 at 4dp
	_, wac, err := ReceiptOutcome(position("1", "1.00"), dec("2"), dec("2.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !wac.Equal(dec("1.6667")) {
		t.Fatalf("wac = %s, want 1.6667", wac)
	}
}

func TestReceiptOutcome_RejectsBadInput(t *testing.T) {
	if _, _, err := ReceiptOutcome(position("0", "0"), dec("0"), dec("1")); err == nil {
		t.Fatal("zero qty accepted")
	}
	if _, _, err := ReceiptOutcome(position("0", "0"), dec("-1"), dec("1")); err == nil {
		t.Fatal("negative qty accepted")
	}
	if _, _, err := ReceiptOutcome(position("0", "0"), dec("1"), dec("-0.01")); err == nil {
		t.Fatal("negative unit cost accepted")
	}
}

func TestIssueOutcome_NeverChangesWac(t *testing.T) {
	onHand, wac, unitCost, err := IssueOutcome(position("20", "3.00"), dec("5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !onHand.Equal(dec("15")) {
		t.Fatalf("on_hand = %s, want 15", onHand)
	}
	if !wac.Equal(dec("3.00")) {
		t.Fatalf("wac = %s, want unchanged 3.00", wac)
	}
	if !unitCost.Equal(dec("3.00")) {
		t.Fatalf("unit cost = %s, want 3.00", unitCost)
	}
}

func TestIssueOutcome_InsufficientStock(t *testing.T) {
	p := position("5", "2.00")
	_, _, _, err := IssueOutcome(p, dec("6"))
	var insufficient *models.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if !insufficient.OnHand.Equal(dec("5")) || !insufficient.Requested.Equal(dec("6")) {
		t.Fatalf("error fields = %+v", insufficient)
	}
	// the position itself is untouched
	if !p.OnHand.Equal(dec("5")) || !p.Wac.Equal(dec("2.00")) {
		t.Fatalf("position mutated: %+v", p)
	}
}

func TestIssueOutcome_EmptyingResetsWac(t *testing.T) {
	onHand, wac, unitCost, err := IssueOutcome(position("4", "7.50"), dec("4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !onHand.IsZero() {
		t.Fatalf("on_hand = %s, want 0", onHand)
	}
	if !wac.IsZero() {
		t.Fatalf("wac = %s, want reset to 0", wac)
	}
	if !unitCost.Equal(dec("7.50")) {
		t.Fatalf("unit cost = %s, want 7.50", unitCost)
	}
}

// Transfer-in is a receipt priced at the source wac: value is conserved
// across the pair.
func TestTransferPairConservesValue(t *testing.T) {
	source := position("10", "5.00")
	dest := position("3", "2.00")
	qty := dec("4")

	srcOnHand, srcWac, sourceCost, err := IssueOutcome(source, qty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dstOnHand, dstWac, err := ReceiptOutcome(dest, qty, sourceCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// (3*2 + 4*5) / 7 = 26/7 = 3.7142857 -> 3.7143
	if !dstWac.Equal(dec("3.7143")) {
		t.Fatalf("destination wac = %s, want 3.7143", dstWac)
	}

	// Conservation up to the 4dp rounding of the destination wac.
	before := source.OnHand.Mul(source.Wac).Add(dest.OnHand.Mul(dest.Wac))
	after := srcOnHand.Mul(srcWac).Add(dstOnHand.Mul(dstWac))
	if before.Sub(after).Abs().GreaterThan(dec("0.001")) {
		t.Fatalf("value not conserved: before=%s after=%s", before, after)
	}
}
