package utils

import "github.com/shopspring/decimal"

// Ledger math runs at full precision; quantities and unit costs are stored in
// decimal(20,4) columns, so anything leaving the engine is quantized to 4dp.
const LedgerScale = 4

func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(LedgerScale)
}

// SafeDiv returns a/b rounded to the ledger scale, or nil when b is zero.
// Division-by-zero is reported as "unavailable", never as an error.
func SafeDiv(a, b decimal.Decimal) *decimal.Decimal {
	if b.IsZero() {
		return nil
	}
	q := a.DivRound(b, LedgerScale)
	return &q
}
