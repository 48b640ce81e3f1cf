package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNoParticipants           = errors.New("must have at least one participant")
	ErrParticipantInputMismatch = errors.New("number of split inputs does not match number of participants")
	ErrParticipantSetMismatch   = errors.New("split participants do not match expense participants")
	ErrDuplicateParticipant     = errors.New("participant appears more than once in split")
	ErrPayerNotParticipant      = errors.New("payer must be one of the participants")
	ErrInvalidStrategyInput     = errors.New("invalid split input")
	ErrSplitSumMismatch         = errors.New("split amounts don't add up to the total")
)

// SplitSumMismatchError reports shares that do not reconcile to the total.
// It matches ErrSplitSumMismatch with errors.Is.
type SplitSumMismatchError struct {
	Total decimal.Decimal
	Sum   decimal.Decimal
	// Delta is Total - Sum: positive when shares fall short of the total.
	Delta decimal.Decimal
}

func (e *SplitSumMismatchError) Error() string {
	return fmt.Sprintf("%s: shares sum to %s, total is %s (delta %s)",
		ErrSplitSumMismatch, e.Sum.StringFixed(2), e.Total.StringFixed(2), e.Delta.StringFixed(2))
}

func (e *SplitSumMismatchError) Is(target error) bool {
	return target == ErrSplitSumMismatch
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidStrategyInput, fmt.Sprintf(format, args...))
}
