package calculator

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmynk/expensesplit/internal/models"
)

// CentPlaces is the number of decimal places in the smallest currency unit.
const CentPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	// percentTolerance bounds how far percentages may stray from 100.
	percentTolerance = decimal.NewFromFloat(0.5)
	// maxUnits bounds totals so cent arithmetic stays within int64.
	maxUnits = decimal.NewFromInt(math.MaxInt64 / 2)
)

// ComputeShares computes each participant's share of total under strategy.
// Shares are returned in participant order with IsPayer unset.
//
// inputs carries one value per participant: a percentage (0-100) for
// SplitPercentage, an amount for SplitExact. SplitEqual ignores inputs.
//
// Equal and percentage splits work in whole cents. A percentage share is
// total*p/100 rounded to the cent; leftover or excess cents are then
// settled in participant order, so both strategies always sum to total
// exactly. Exact amounts pass through untouched for ValidateShares to
// reconcile.
func ComputeShares(strategy models.SplitStrategy, total decimal.Decimal, participants []models.Participant, inputs []decimal.Decimal) ([]models.ShareLine, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	if !total.IsPositive() {
		return nil, invalidInput("total must be positive, got %s", total)
	}
	units := total.Shift(CentPlaces)
	if !units.IsInteger() {
		return nil, invalidInput("total %s has more than %d decimal places", total, CentPlaces)
	}
	if units.GreaterThan(maxUnits) {
		return nil, invalidInput("total %s is too large", total)
	}

	switch strategy {
	case models.SplitEqual:
		return equalShares(units.IntPart(), participants), nil
	case models.SplitPercentage:
		if len(inputs) != len(participants) {
			return nil, ErrParticipantInputMismatch
		}
		return percentageShares(units.IntPart(), participants, inputs)
	case models.SplitExact:
		if len(inputs) != len(participants) {
			return nil, ErrParticipantInputMismatch
		}
		return exactShares(participants, inputs)
	default:
		return nil, invalidInput("unknown split strategy %q", strategy)
	}
}

// equalShares gives every participant units/n cents and the first
// units%n participants one extra cent.
func equalShares(units int64, participants []models.Participant) []models.ShareLine {
	n := int64(len(participants))
	base, leftover := units/n, units%n

	shares := make([]models.ShareLine, len(participants))
	for i, p := range participants {
		cents := base
		if int64(i) < leftover {
			cents++
		}
		shares[i] = models.ShareLine{ParticipantID: p.ID, Amount: fromCents(cents)}
	}
	return shares
}

func percentageShares(units int64, participants []models.Participant, percents []decimal.Decimal) ([]models.ShareLine, error) {
	sum := decimal.Zero
	for i, p := range percents {
		if p.IsNegative() || p.GreaterThan(hundred) {
			return nil, invalidInput("percentage for %s must be between 0 and 100, got %s", participants[i].ID, p)
		}
		sum = sum.Add(p)
	}
	if sum.Sub(hundred).Abs().GreaterThanOrEqual(percentTolerance) {
		return nil, invalidInput("percentages must add up to 100, got %s", sum)
	}

	total := decimal.NewFromInt(units)
	cents := make([]int64, len(percents))
	var allocated int64
	for i, p := range percents {
		cents[i] = total.Mul(p).Div(hundred).Round(0).IntPart()
		allocated += cents[i]
	}

	if leftover := units - allocated; leftover > 0 {
		addLeftover(cents, percents, leftover)
	} else if leftover < 0 {
		removeExcess(cents, -leftover)
	}

	shares := make([]models.ShareLine, len(participants))
	for i, p := range participants {
		shares[i] = models.ShareLine{ParticipantID: p.ID, Amount: fromCents(cents[i])}
	}
	return shares, nil
}

// addLeftover spreads leftover cents evenly over participants with a
// non-zero percentage, the earliest ones taking the odd cents.
func addLeftover(cents []int64, percents []decimal.Decimal, leftover int64) {
	var eligible []int
	for i, p := range percents {
		if p.IsPositive() {
			eligible = append(eligible, i)
		}
	}
	k := int64(len(eligible))
	for n, i := range eligible {
		cents[i] += leftover / k
		if int64(n) < leftover%k {
			cents[i]++
		}
	}
}

// removeExcess takes excess cents back from non-zero shares in participant
// order, never pushing a share below zero.
func removeExcess(cents []int64, excess int64) {
	for excess > 0 {
		var eligible []int
		lowest := int64(math.MaxInt64)
		for i, c := range cents {
			if c > 0 {
				eligible = append(eligible, i)
				lowest = min(lowest, c)
			}
		}
		k := int64(len(eligible))
		step := min(excess/k, lowest)
		if step == 0 {
			for _, i := range eligible[:excess] {
				cents[i]--
			}
			return
		}
		for _, i := range eligible {
			cents[i] -= step
		}
		excess -= step * k
	}
}

func exactShares(participants []models.Participant, amounts []decimal.Decimal) ([]models.ShareLine, error) {
	shares := make([]models.ShareLine, len(participants))
	for i, p := range participants {
		if amounts[i].IsNegative() {
			return nil, invalidInput("amount for %s cannot be negative, got %s", p.ID, amounts[i])
		}
		shares[i] = models.ShareLine{ParticipantID: p.ID, Amount: amounts[i]}
	}
	return shares, nil
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -CentPlaces)
}

// SumShares adds up share amounts.
func SumShares(shares []models.ShareLine) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// MarkPayer returns a copy of shares with IsPayer set only for payerID.
func MarkPayer(shares []models.ShareLine, payerID string) []models.ShareLine {
	marked := make([]models.ShareLine, len(shares))
	for i, s := range shares {
		s.IsPayer = s.ParticipantID == payerID
		marked[i] = s
	}
	return marked
}
