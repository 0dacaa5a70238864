package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
)

// Default tolerances for transaction-to-payment matching.
var (
	DefaultAmountTolerance   = decimal.NewFromFloat(0.01)
	DefaultDateToleranceDays = 3
)

// matchingService proposes links between observed bank transactions and
// scheduled payments. It is a pure scoring engine: identical inputs always
// produce identical proposals and nothing is mutated or persisted.
type matchingService struct{}

// NewMatchingService creates a new MatchingServicer.
func NewMatchingService() MatchingServicer {
	return &matchingService{}
}

type matchCandidate struct {
	payment     *models.Payment
	amountDiff  decimal.Decimal
	daysDiff    int
	nameMatched bool
}

// MatchTransactionsToPayments scores each transaction against the candidate
// payments and returns one advisory proposal per matchable transaction.
//
// A payment is a candidate when the amount difference is within
// amountTolerance, the date difference is within dateToleranceDays, and,
// when both merchant name and payee are present, one is a case-insensitive
// substring of the other. Among candidates the smallest amount difference
// wins; ties break on the smallest date difference, then the lowest payment
// ID, so the result is deterministic.
func (s *matchingService) MatchTransactionsToPayments(
	transactions []models.Transaction,
	payments []models.Payment,
	amountTolerance decimal.Decimal,
	dateToleranceDays int,
) ([]MatchProposal, error) {
	if amountTolerance.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount tolerance must not be negative")
	}
	if dateToleranceDays < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "date tolerance must not be negative")
	}

	proposals := make([]MatchProposal, 0)
	for i := range transactions {
		txn := &transactions[i]
		// A manual categorization is a user decision; never propose over it.
		if txn.UserCategorized {
			continue
		}
		// Already linked transactions need no proposal.
		if txn.PaymentID != nil {
			continue
		}

		best := bestCandidate(txn, payments, amountTolerance, dateToleranceDays)
		if best == nil {
			continue
		}

		confidence, reason := scoreCandidate(best, amountTolerance, dateToleranceDays)
		proposals = append(proposals, MatchProposal{
			TransactionID: txn.ID,
			PaymentID:     best.payment.ID,
			Confidence:    confidence,
			Reason:        reason,
		})
	}
	return proposals, nil
}

func bestCandidate(txn *models.Transaction, payments []models.Payment, amountTolerance decimal.Decimal, dateToleranceDays int) *matchCandidate {
	// Bank feeds sign outgoing money negative; payments are stored as the
	// positive amount owed.
	txnAmount := txn.Amount.Abs()

	var best *matchCandidate
	for i := range payments {
		p := &payments[i]

		amountDiff := txnAmount.Sub(p.Amount).Abs()
		if amountDiff.GreaterThan(amountTolerance) {
			continue
		}

		daysDiff := absDaysBetween(txn.Date, p.DueDate)
		if daysDiff > dateToleranceDays {
			continue
		}

		nameMatched := false
		if txn.MerchantName != "" && p.Payee != "" {
			if !namesOverlap(txn.MerchantName, p.Payee) {
				continue
			}
			nameMatched = true
		}

		c := &matchCandidate{payment: p, amountDiff: amountDiff, daysDiff: daysDiff, nameMatched: nameMatched}
		if best == nil || closer(c, best) {
			best = c
		}
	}
	return best
}

// closer reports whether a beats b under the deterministic ordering:
// smaller amount difference, then smaller date difference, then lower ID.
func closer(a, b *matchCandidate) bool {
	if !a.amountDiff.Equal(b.amountDiff) {
		return a.amountDiff.LessThan(b.amountDiff)
	}
	if a.daysDiff != b.daysDiff {
		return a.daysDiff < b.daysDiff
	}
	return a.payment.ID < b.payment.ID
}

// scoreCandidate computes the confidence as the sum of three independent
// terms: amount closeness (max 0.4), date closeness (max 0.3), and name
// match (0.3). The total is always within [0,1].
func scoreCandidate(c *matchCandidate, amountTolerance decimal.Decimal, dateToleranceDays int) (float64, string) {
	var reasons []string

	var amountTerm float64
	if c.amountDiff.IsZero() {
		amountTerm = 0.4
		reasons = append(reasons, "exact amount")
	} else {
		ratio, _ := c.amountDiff.Div(amountTolerance).Float64()
		amountTerm = 0.4 * (1 - ratio)
		reasons = append(reasons, "amount within tolerance")
	}

	var dateTerm float64
	if c.daysDiff == 0 {
		dateTerm = 0.3
		reasons = append(reasons, "same day")
	} else {
		dateTerm = 0.3 * (1 - float64(c.daysDiff)/float64(dateToleranceDays))
		reasons = append(reasons, "date within tolerance")
	}

	var nameTerm float64
	if c.nameMatched {
		nameTerm = 0.3
		reasons = append(reasons, "merchant matches payee")
	}

	confidence := amountTerm + dateTerm + nameTerm
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence, strings.Join(reasons, ", ")
}

func namesOverlap(merchant, payee string) bool {
	m := strings.ToLower(strings.TrimSpace(merchant))
	p := strings.ToLower(strings.TrimSpace(payee))
	if m == "" || p == "" {
		return false
	}
	return strings.Contains(m, p) || strings.Contains(p, m)
}

// absDaysBetween counts whole calendar days between two dates, ignoring
// the time-of-day component.
func absDaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
