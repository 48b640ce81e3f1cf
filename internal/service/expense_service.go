package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/expensesplit/internal/calculator"
	"github.com/mmynk/expensesplit/internal/expense"
	"github.com/mmynk/expensesplit/internal/metrics"
	"github.com/mmynk/expensesplit/internal/middleware"
	"github.com/mmynk/expensesplit/internal/models"
	"github.com/mmynk/expensesplit/internal/storage"
	"github.com/mmynk/expensesplit/pkg/api"
	"github.com/mmynk/expensesplit/pkg/api/apiconnect"
)

// Ensure ExpenseService implements the connect handler interface
var _ apiconnect.ExpenseServiceHandler = (*ExpenseService)(nil)

// ExpenseService implements the Connect ExpenseService
type ExpenseService struct {
	store      storage.Store
	assembler  *expense.Assembler
	categories expense.CategorySource
	metrics    *metrics.Metrics
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(store storage.Store, categories expense.CategorySource, m *metrics.Metrics) *ExpenseService {
	return &ExpenseService{
		store:      store,
		assembler:  expense.NewAssembler(categories),
		categories: categories,
		metrics:    m,
	}
}

// PreviewSplit computes shares for a form without storing anything.
// Shares that fail reconciliation are still returned along with the reason.
func (s *ExpenseService) PreviewSplit(ctx context.Context, req *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.PreviewSplitResponse], error) {
	current, ok := middleware.CurrentParticipant(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}

	participants := req.Msg.Participants
	if len(participants) == 0 {
		participants = []models.Participant{current}
	}
	payerID := req.Msg.PayerID
	if payerID == "" {
		payerID = current.ID
	}

	shares, err := calculator.ComputeShares(req.Msg.Strategy, req.Msg.Total, participants, req.Msg.Inputs)
	if err != nil {
		slog.Debug("PreviewSplit rejected", "strategy", req.Msg.Strategy, "error", err)
		return nil, connect.NewError(assemblyCode(err), err)
	}
	shares = calculator.MarkPayer(shares, payerID)

	sum := calculator.SumShares(shares)
	resp := &api.PreviewSplitResponse{
		Shares: shares,
		Sum:    sum,
		Delta:  req.Msg.Total.Sub(sum),
	}
	if err := calculator.ValidateShares(shares, req.Msg.Total, payerID, participants); err != nil {
		resp.ValidationError = err.Error()
	}
	return connect.NewResponse(resp), nil
}

// CreateExpense assembles a submission for the authenticated participant
// and stores it.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	current, ok := middleware.CurrentParticipant(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}
	msg := req.Msg

	slog.Info("CreateExpense request received",
		"user_id", current.ID,
		"type", msg.Type,
		"strategy", msg.Strategy,
		"group_id", msg.GroupID,
	)

	in := expense.RawInput{
		Description:  msg.Description,
		Amount:       msg.Amount,
		Category:     msg.Category,
		Date:         msg.Date,
		PayerID:      msg.PayerID,
		Strategy:     msg.Strategy,
		Type:         msg.Type,
		Participants: msg.Participants,
		Inputs:       msg.Inputs,
		Shares:       msg.Shares,
	}
	if msg.Type == models.ExpenseGroup && msg.GroupID != "" {
		group, err := s.store.GetGroup(ctx, msg.GroupID)
		if err != nil {
			slog.Error("CreateExpense failed to load group", "group_id", msg.GroupID, "error", err)
			return nil, storageError(err)
		}
		if !group.HasMember(current.ID) {
			return nil, permissionDenied("you must be a member of this group")
		}
		in.Group = group
	}

	result, err := s.assembler.Assemble(current, in)
	if err != nil {
		s.metrics.AssemblyFailed(failureReason(err))
		slog.Warn("CreateExpense assembly failed", "user_id", current.ID, "error", err)
		return nil, connect.NewError(assemblyCode(err), err)
	}

	record := result.Record
	if err := s.store.CreateExpense(ctx, &record); err != nil {
		slog.Error("CreateExpense failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	warnings := make([]string, len(result.Warnings))
	for i, w := range result.Warnings {
		warnings[i] = string(w)
		if w == expense.WarningEqualSplitFallback {
			s.metrics.SplitFallback()
		}
	}
	s.metrics.ExpenseCreated(string(record.Strategy), string(msg.Type), record.Total.InexactFloat64())

	slog.Info("Expense created",
		"expense_id", record.ID,
		"total", record.Total.StringFixed(calculator.CentPlaces),
		"shares", len(record.Shares),
		"warnings", len(warnings),
	)

	return connect.NewResponse(&api.CreateExpenseResponse{
		Expense:    &record,
		Warnings:   warnings,
		RedirectID: expense.NavigationTarget(current, record),
	}), nil
}

// GetExpense retrieves an expense the caller takes part in.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}

	record, err := s.visibleExpense(ctx, userID, req.Msg.ExpenseID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: record}), nil
}

// ListExpenses lists a group's expenses, or the caller's individual
// expenses when no group is given.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}

	var (
		expenses []*models.ExpenseRecord
		err      error
	)
	if groupID := req.Msg.GroupID; groupID != "" {
		if _, gerr := s.memberGroup(ctx, userID, groupID); gerr != nil {
			return nil, gerr
		}
		expenses, err = s.store.ListExpensesByGroup(ctx, groupID)
	} else {
		expenses, err = s.store.ListIndividualExpenses(ctx, userID)
	}
	if err != nil {
		slog.Error("ListExpenses failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Debug("ListExpenses successful", "group_id", req.Msg.GroupID, "count", len(expenses))
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: expenses}), nil
}

// DeleteExpense removes an expense the caller takes part in.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}

	if _, err := s.visibleExpense(ctx, userID, req.Msg.ExpenseID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteExpense(ctx, req.Msg.ExpenseID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, storageError(err)
	}

	slog.Info("Expense deleted", "expense_id", req.Msg.ExpenseID, "user_id", userID)
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// ListCategories returns the categories an expense may use.
func (s *ExpenseService) ListCategories(ctx context.Context, req *connect.Request[api.ListCategoriesRequest]) (*connect.Response[api.ListCategoriesResponse], error) {
	return connect.NewResponse(&api.ListCategoriesResponse{
		Categories: s.categories.Categories(),
	}), nil
}

// visibleExpense loads an expense and checks the caller may see it:
// a share holder or the submitter, or any member of the expense's group.
func (s *ExpenseService) visibleExpense(ctx context.Context, userID, expenseID string) (*models.ExpenseRecord, error) {
	if expenseID == "" {
		return nil, invalidArgument("expense_id required")
	}
	record, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("GetExpense failed", "expense_id", expenseID, "error", err)
		}
		return nil, storageError(err)
	}
	if record.HasParticipant(userID) || record.CreatedBy == userID {
		return record, nil
	}
	if record.IsGroupExpense() {
		if _, err := s.memberGroup(ctx, userID, record.GroupID); err == nil {
			return record, nil
		}
	}
	return nil, permissionDenied("you must be a participant to view this expense")
}

// memberGroup loads a group the caller belongs to.
func (s *ExpenseService) memberGroup(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storageError(err)
	}
	if !group.HasMember(userID) {
		return nil, permissionDenied("you must be a member of this group")
	}
	return group, nil
}
