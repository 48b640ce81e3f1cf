package service

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/expensesplit/internal/calculator"
	"github.com/mmynk/expensesplit/internal/expense"
	"github.com/mmynk/expensesplit/internal/storage"
)

var errAuthRequired = errors.New("authentication required")

// assemblyCode maps an assembly or split failure to a connect code.
// Missing prerequisites (no group, no participants) are FailedPrecondition;
// everything else the caller sent is InvalidArgument.
func assemblyCode(err error) connect.Code {
	switch {
	case errors.Is(err, expense.ErrGroupNotSelected),
		errors.Is(err, calculator.ErrNoParticipants):
		return connect.CodeFailedPrecondition
	default:
		return connect.CodeInvalidArgument
	}
}

// failureReason is a low-cardinality metric label for an assembly failure.
func failureReason(err error) string {
	reasons := []struct {
		target error
		reason string
	}{
		{expense.ErrInvalidInput, "invalid_input"},
		{expense.ErrInvalidAmount, "invalid_amount"},
		{expense.ErrUnknownCategory, "unknown_category"},
		{expense.ErrGroupNotSelected, "group_not_selected"},
		{calculator.ErrNoParticipants, "no_participants"},
		{calculator.ErrParticipantInputMismatch, "participant_input_mismatch"},
		{calculator.ErrParticipantSetMismatch, "participant_set_mismatch"},
		{calculator.ErrDuplicateParticipant, "duplicate_participant"},
		{calculator.ErrPayerNotParticipant, "payer_not_participant"},
		{calculator.ErrInvalidStrategyInput, "invalid_strategy_input"},
		{calculator.ErrSplitSumMismatch, "split_sum_mismatch"},
	}
	for _, r := range reasons {
		if errors.Is(err, r.target) {
			return r.reason
		}
	}
	return "other"
}

// storageError maps a store failure to NotFound or Internal.
func storageError(err error) *connect.Error {
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func permissionDenied(format string, args ...any) *connect.Error {
	return connect.NewError(connect.CodePermissionDenied, fmt.Errorf(format, args...))
}

func invalidArgument(format string, args ...any) *connect.Error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}
