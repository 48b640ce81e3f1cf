package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/expensesplit/internal/models"
)

// SumTolerance is how far shares may drift from the total and still
// reconcile: one cent. Engine-computed shares never need it; it absorbs
// already-rounded amounts entered by users.
var SumTolerance = decimal.New(1, -CentPlaces)

// ValidateShares checks shares against the expense they belong to.
// Checks run in a fixed order and the first failure is returned:
//
//  1. participants is non-empty (ErrNoParticipants)
//  2. shares and participants name the same set of IDs (ErrParticipantSetMismatch)
//  3. no participant holds two share lines (ErrDuplicateParticipant)
//  4. the payer is a participant (ErrPayerNotParticipant)
//  5. no share amount is negative (ErrInvalidStrategyInput)
//  6. shares sum to total within SumTolerance (*SplitSumMismatchError)
//
// It is used both on engine output and on shares edited by hand.
func ValidateShares(shares []models.ShareLine, total decimal.Decimal, payerID string, participants []models.Participant) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}

	expected := make(map[string]bool, len(participants))
	for _, p := range participants {
		expected[p.ID] = true
	}
	seen := make(map[string]int, len(shares))
	for _, s := range shares {
		if !expected[s.ParticipantID] {
			return ErrParticipantSetMismatch
		}
		seen[s.ParticipantID]++
	}
	if len(seen) != len(expected) {
		return ErrParticipantSetMismatch
	}
	for _, count := range seen {
		if count > 1 {
			return ErrDuplicateParticipant
		}
	}

	if !expected[payerID] {
		return ErrPayerNotParticipant
	}

	for _, s := range shares {
		if s.Amount.IsNegative() {
			return invalidInput("share for %s cannot be negative, got %s", s.ParticipantID, s.Amount)
		}
	}

	sum := SumShares(shares)
	delta := total.Sub(sum)
	if delta.Abs().GreaterThan(SumTolerance) {
		return &SplitSumMismatchError{Total: total, Sum: sum, Delta: delta}
	}
	return nil
}
