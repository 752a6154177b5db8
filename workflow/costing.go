package workflow

import (
	"errors"

	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"github.com/shopspring/decimal"
)

// Pure weighted-average costing. These functions compute the next on-hand/wac
// for a position without touching the DB; the appliers persist the outcome
// through a revision CAS.

// ReceiptOutcome folds an incoming quantity at unitCost into the position.
// newWac = (onHand*wac + qty*unitCost) / (onHand+qty), kept at ledger scale.
// An empty position takes the receipt price as its wac exactly.
func ReceiptOutcome(position *models.StockPosition, qty decimal.Decimal, unitCost decimal.Decimal) (newOnHand decimal.Decimal, newWac decimal.Decimal, err error) {
	if !qty.IsPositive() {
		return decimal.Zero, decimal.Zero, errors.New("receipt qty must be positive")
	}
	if unitCost.IsNegative() {
		return decimal.Zero, decimal.Zero, errors.New("unit cost cannot be negative")
	}

	newOnHand = position.OnHand.Add(qty)
	if position.OnHand.IsZero() {
		return newOnHand, unitCost, nil
	}

	totalValue := position.OnHand.Mul(position.Wac).Add(qty.Mul(unitCost))
	wac := utils.SafeDiv(totalValue, newOnHand)
	if wac == nil {
		// unreachable for a pure receipt: qty > 0 and onHand >= 0
		return newOnHand, decimal.Zero, nil
	}
	return newOnHand, *wac, nil
}

// IssueOutcome removes qty from the position. Issues never recompute wac;
// unitCost is the wac at issue time, captured into the movement for audit.
// Emptying the position resets wac to zero so the next receipt starts clean.
func IssueOutcome(position *models.StockPosition, qty decimal.Decimal) (newOnHand decimal.Decimal, newWac decimal.Decimal, unitCost decimal.Decimal, err error) {
	if !qty.IsPositive() {
		return decimal.Zero, decimal.Zero, decimal.Zero, errors.New("issue qty must be positive")
	}
	if qty.GreaterThan(position.OnHand) {
		return decimal.Zero, decimal.Zero, decimal.Zero, &models.InsufficientStockError{
			LocationId: position.LocationId,
			ItemId:     position.ItemId,
			OnHand:     position.OnHand,
			Requested:  qty,
		}
	}

	unitCost = position.Wac
	newOnHand = position.OnHand.Sub(qty)
	newWac = position.Wac
	if newOnHand.IsZero() {
		newWac = decimal.Zero
	}
	return newOnHand, newWac, unitCost, nil
}
