// Package money provides currency helpers shared by the ledger services.
// All amounts are decimal values rounded to cents; rounding happens before
// any capacity comparison so a boundary case never flips on representation.
package money

import "github.com/shopspring/decimal"

// RoundCents rounds an amount half-up to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Sum returns the cent-rounded sum of the given amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return RoundCents(total)
}

// ProportionalShares splits total across weights, each share rounded to
// cents. Any residual cent drift between the rounded shares and total is
// added to the last non-zero share, keeping the sum exactly equal to total.
func ProportionalShares(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))

	weightSum := decimal.Zero
	for _, w := range weights {
		weightSum = weightSum.Add(w)
	}
	if weightSum.IsZero() || total.IsZero() {
		return shares
	}

	allocated := decimal.Zero
	last := -1
	for i, w := range weights {
		share := RoundCents(total.Mul(w).Div(weightSum))
		shares[i] = share
		allocated = allocated.Add(share)
		if share.IsPositive() {
			last = i
		}
	}

	if last >= 0 {
		shares[last] = shares[last].Add(total.Sub(allocated))
	}
	return shares
}
