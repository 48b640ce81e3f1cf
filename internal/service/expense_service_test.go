package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/expensesplit/internal/expense"
	"github.com/mmynk/expensesplit/internal/models"
	"github.com/mmynk/expensesplit/pkg/api"
	"github.com/mmynk/expensesplit/pkg/api/apiconnect"
)

func TestPreviewSplit_Equal(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := srv.expenses(t, alice).PreviewSplit(context.Background(), connect.NewRequest(&api.PreviewSplitRequest{
		Strategy:     models.SplitEqual,
		Total:        dec("10.00"),
		PayerID:      "bob",
		Participants: []models.Participant{alice, bob, charlie},
	}))
	if err != nil {
		t.Fatalf("PreviewSplit failed: %v", err)
	}

	assertShares(t, resp.Msg.Shares, map[string]string{"alice": "3.34", "bob": "3.33", "charlie": "3.33"})
	for _, s := range resp.Msg.Shares {
		if s.IsPayer != (s.ParticipantID == "bob") {
			t.Errorf("%s: unexpected IsPayer %v", s.ParticipantID, s.IsPayer)
		}
	}
	if !resp.Msg.Delta.IsZero() || resp.Msg.ValidationError != "" {
		t.Errorf("expected reconciled preview, got delta %s, error %q", resp.Msg.Delta, resp.Msg.ValidationError)
	}
}

func TestPreviewSplit_DefaultsToCaller(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := srv.expenses(t, alice).PreviewSplit(context.Background(), connect.NewRequest(&api.PreviewSplitRequest{
		Strategy: models.SplitEqual,
		Total:    dec("12.34"),
	}))
	if err != nil {
		t.Fatalf("PreviewSplit failed: %v", err)
	}
	assertShares(t, resp.Msg.Shares, map[string]string{"alice": "12.34"})
	if !resp.Msg.Shares[0].IsPayer {
		t.Error("expected caller to be the payer")
	}
}

func TestPreviewSplit_ExactReportsDelta(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := srv.expenses(t, alice).PreviewSplit(context.Background(), connect.NewRequest(&api.PreviewSplitRequest{
		Strategy:     models.SplitExact,
		Total:        dec("10.00"),
		PayerID:      "alice",
		Participants: []models.Participant{alice, bob},
		Inputs:       decs("6.00", "3.00"),
	}))
	if err != nil {
		t.Fatalf("PreviewSplit failed: %v", err)
	}

	assertShares(t, resp.Msg.Shares, map[string]string{"alice": "6.00", "bob": "3.00"})
	if !resp.Msg.Delta.Equal(dec("1.00")) {
		t.Errorf("expected delta 1.00, got %s", resp.Msg.Delta)
	}
	if !strings.Contains(resp.Msg.ValidationError, "delta 1.00") {
		t.Errorf("expected validation error with delta, got %q", resp.Msg.ValidationError)
	}
}

func TestPreviewSplit_PercentagesOffBy50Basis(t *testing.T) {
	srv := setupTestServer(t)

	_, err := srv.expenses(t, alice).PreviewSplit(context.Background(), connect.NewRequest(&api.PreviewSplitRequest{
		Strategy:     models.SplitPercentage,
		Total:        dec("100"),
		Participants: []models.Participant{alice, bob, charlie},
		Inputs:       decs("50", "30", "19.5"),
	}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestPreviewSplit_TotalTooLarge(t *testing.T) {
	srv := setupTestServer(t)

	_, err := srv.expenses(t, alice).PreviewSplit(context.Background(), connect.NewRequest(&api.PreviewSplitRequest{
		Strategy:     models.SplitEqual,
		Total:        dec("100000000000000000"),
		Participants: []models.Participant{alice},
	}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestCreateExpense_GroupEqualSplit(t *testing.T) {
	srv := setupTestServer(t)
	group := srv.createGroup(t, alice, "Roommates", bob, charlie)

	resp, err := srv.expenses(t, alice).CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Description: "Groceries",
		Amount:      "10.00",
		Category:    "Groceries",
		Date:        testDate,
		PayerID:     "bob",
		Strategy:    models.SplitEqual,
		Type:        models.ExpenseGroup,
		GroupID:     group.ID,
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	record := resp.Msg.Expense
	if record.ID == "" || record.CreatedAt == 0 {
		t.Errorf("expected persisted record, got %+v", record)
	}
	if record.GroupID != group.ID {
		t.Errorf("expected group %s, got %q", group.ID, record.GroupID)
	}
	if record.CreatedBy != "alice" || record.PayerID != "bob" {
		t.Errorf("unexpected creator/payer: %s/%s", record.CreatedBy, record.PayerID)
	}
	assertShares(t, record.Shares, map[string]string{"alice": "3.34", "bob": "3.33", "charlie": "3.33"})
	if resp.Msg.RedirectID != group.ID {
		t.Errorf("expected redirect to group, got %q", resp.Msg.RedirectID)
	}
	if len(resp.Msg.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", resp.Msg.Warnings)
	}

	// Any group member can read it back.
	got, err := srv.expenses(t, charlie).GetExpense(context.Background(), connect.NewRequest(&api.GetExpenseRequest{
		ExpenseID: record.ID,
	}))
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if !got.Msg.Expense.Total.Equal(dec("10")) || !got.Msg.Expense.Date.Equal(testDate) {
		t.Errorf("stored expense mismatch: %+v", got.Msg.Expense)
	}
	if v := srv.counterValue(t, "expenses_created_total"); v != 1 {
		t.Errorf("expected 1 expense created, got %v", v)
	}
}

func TestCreateExpense_SelfPayment(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := srv.expenses(t, alice).CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Description: "Coffee",
		Amount:      "4.50",
		Date:        testDate,
		PayerID:     "alice",
		Strategy:    models.SplitEqual,
		Type:        models.ExpenseIndividual,
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	record := resp.Msg.Expense
	assertShares(t, record.Shares, map[string]string{"alice": "4.50"})
	if !record.Shares[0].IsPayer {
		t.Error("expected the only share to be the payer")
	}
	if record.Category != models.CategoryOther {
		t.Errorf("expected default category, got %q", record.Category)
	}
	if record.GroupID != "" {
		t.Errorf("expected no group, got %q", record.GroupID)
	}
	if resp.Msg.RedirectID != "alice" {
		t.Errorf("expected redirect to self, got %q", resp.Msg.RedirectID)
	}
}

func TestCreateExpense_IndividualRedirectsToOtherParticipant(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := srv.expenses(t, alice).CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Description:  "Dinner",
		Amount:       "90",
		Category:     "Food",
		Date:         testDate,
		PayerID:      "alice",
		Strategy:     models.SplitPercentage,
		Type:         models.ExpenseIndividual,
		Participants: []models.Participant{alice, bob, charlie},
		Inputs:       decs("50", "30", "20"),
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	assertShares(t, resp.Msg.Expense.Shares, map[string]string{"alice": "45", "bob": "27", "charlie": "18"})
	if resp.Msg.RedirectID != "bob" {
		t.Errorf("expected redirect to bob, got %q", resp.Msg.RedirectID)
	}
}

func TestCreateExpense_FallbackToEqualSplit(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := srv.expenses(t, alice).CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Description:  "Taxi",
		Amount:       "20.00",
		Category:     "Transportation",
		Date:         testDate,
		PayerID:      "bob",
		Strategy:     models.SplitExact,
		Type:         models.ExpenseIndividual,
		Participants: []models.Participant{alice, bob},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	assertShares(t, resp.Msg.Expense.Shares, map[string]string{"alice": "10", "bob": "10"})
	if resp.Msg.Expense.Strategy != models.SplitExact {
		t.Errorf("expected strategy label to be kept, got %q", resp.Msg.Expense.Strategy)
	}
	if len(resp.Msg.Warnings) != 1 || resp.Msg.Warnings[0] != string(expense.WarningEqualSplitFallback) {
		t.Errorf("expected fallback warning, got %v", resp.Msg.Warnings)
	}
	if v := srv.counterValue(t, "expense_split_fallbacks_total"); v != 1 {
		t.Errorf("expected 1 fallback, got %v", v)
	}
}

func TestCreateExpense_CallerSharesUsedVerbatim(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := srv.expenses(t, alice).CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Description:  "Concert",
		Amount:       "100.00",
		Category:     "Entertainment",
		Date:         testDate,
		PayerID:      "alice",
		Strategy:     models.SplitEqual,
		Type:         models.ExpenseIndividual,
		Participants: []models.Participant{alice, bob},
		Shares: []models.ShareLine{
			{ParticipantID: "alice", Amount: dec("70.00"), IsPayer: false},
			{ParticipantID: "bob", Amount: dec("30.00"), IsPayer: true},
		},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	shares := resp.Msg.Expense.Shares
	assertShares(t, shares, map[string]string{"alice": "70", "bob": "30"})
	if !shares[0].IsPayer || shares[1].IsPayer {
		t.Errorf("expected IsPayer to follow payer_id, got %+v", shares)
	}
}

func TestCreateExpense_SharesDoNotAddUp(t *testing.T) {
	srv := setupTestServer(t)

	_, err := srv.expenses(t, alice).CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Description:  "Hotel",
		Amount:       "10.00",
		Date:         testDate,
		PayerID:      "alice",
		Strategy:     models.SplitExact,
		Type:         models.ExpenseIndividual,
		Participants: []models.Participant{alice, bob},
		Inputs:       decs("5.00", "4.00"),
	}))
	assertCode(t, err, connect.CodeInvalidArgument)
	if err != nil && !strings.Contains(err.Error(), "delta 1.00") {
		t.Errorf("expected delta in error, got %v", err)
	}
	if v := srv.counterValue(t, "expense_assembly_failures_total"); v != 1 {
		t.Errorf("expected 1 assembly failure, got %v", v)
	}
}

func TestCreateExpense_Rejections(t *testing.T) {
	srv := setupTestServer(t)
	group := srv.createGroup(t, alice, "Trip", bob)

	base := api.CreateExpenseRequest{
		Description: "Lunch",
		Amount:      "12.00",
		Date:        testDate,
		PayerID:     "alice",
		Strategy:    models.SplitEqual,
		Type:        models.ExpenseIndividual,
	}

	tests := []struct {
		name   string
		caller models.Participant
		modify func(*api.CreateExpenseRequest)
		want   connect.Code
	}{
		{"missing description", alice, func(r *api.CreateExpenseRequest) { r.Description = "  " }, connect.CodeInvalidArgument},
		{"non-numeric amount", alice, func(r *api.CreateExpenseRequest) { r.Amount = "twelve" }, connect.CodeInvalidArgument},
		{"fractional cents", alice, func(r *api.CreateExpenseRequest) { r.Amount = "12.005" }, connect.CodeInvalidArgument},
		{"zero amount", alice, func(r *api.CreateExpenseRequest) { r.Amount = "0" }, connect.CodeInvalidArgument},
		{"amount too large to split", alice, func(r *api.CreateExpenseRequest) { r.Amount = "100000000000000000" }, connect.CodeInvalidArgument},
		{"negative share line", alice, func(r *api.CreateExpenseRequest) {
			r.Amount = "100"
			r.Strategy = models.SplitExact
			r.Participants = []models.Participant{alice, bob}
			r.Shares = []models.ShareLine{
				{ParticipantID: "alice", Amount: dec("120")},
				{ParticipantID: "bob", Amount: dec("-20")},
			}
		}, connect.CodeInvalidArgument},
		{"unknown category", alice, func(r *api.CreateExpenseRequest) { r.Category = "Yachts" }, connect.CodeInvalidArgument},
		{"unknown strategy", alice, func(r *api.CreateExpenseRequest) { r.Strategy = "weighted" }, connect.CodeInvalidArgument},
		{"payer not participant", alice, func(r *api.CreateExpenseRequest) { r.PayerID = "bob" }, connect.CodeInvalidArgument},
		{"group not selected", alice, func(r *api.CreateExpenseRequest) { r.Type = models.ExpenseGroup }, connect.CodeFailedPrecondition},
		{"group not found", alice, func(r *api.CreateExpenseRequest) {
			r.Type = models.ExpenseGroup
			r.GroupID = "missing"
		}, connect.CodeNotFound},
		{"not a group member", diana, func(r *api.CreateExpenseRequest) {
			r.Type = models.ExpenseGroup
			r.GroupID = group.ID
			r.PayerID = "diana"
		}, connect.CodePermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.modify(&req)
			_, err := srv.expenses(t, tt.caller).CreateExpense(context.Background(), connect.NewRequest(&req))
			assertCode(t, err, tt.want)
		})
	}
}

func TestCreateExpense_Unauthenticated(t *testing.T) {
	srv := setupTestServer(t)
	client := apiconnect.NewExpenseServiceClient(http.DefaultClient, srv.url)

	_, err := client.CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Description: "Lunch",
		Amount:      "12.00",
		Date:        testDate,
		PayerID:     "alice",
		Strategy:    models.SplitEqual,
		Type:        models.ExpenseIndividual,
	}))
	assertCode(t, err, connect.CodeUnauthenticated)
}

func TestGetExpense_AccessControl(t *testing.T) {
	srv := setupTestServer(t)

	created, err := srv.expenses(t, alice).CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Description:  "Movie",
		Amount:       "24",
		Category:     "Entertainment",
		Date:         testDate,
		PayerID:      "alice",
		Strategy:     models.SplitEqual,
		Type:         models.ExpenseIndividual,
		Participants: []models.Participant{alice, bob},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	id := created.Msg.Expense.ID

	if _, err := srv.expenses(t, bob).GetExpense(context.Background(), connect.NewRequest(&api.GetExpenseRequest{ExpenseID: id})); err != nil {
		t.Errorf("participant should see expense: %v", err)
	}

	_, err = srv.expenses(t, diana).GetExpense(context.Background(), connect.NewRequest(&api.GetExpenseRequest{ExpenseID: id}))
	assertCode(t, err, connect.CodePermissionDenied)

	_, err = srv.expenses(t, alice).GetExpense(context.Background(), connect.NewRequest(&api.GetExpenseRequest{ExpenseID: "missing"}))
	assertCode(t, err, connect.CodeNotFound)

	_, err = srv.expenses(t, alice).GetExpense(context.Background(), connect.NewRequest(&api.GetExpenseRequest{}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestListExpenses(t *testing.T) {
	srv := setupTestServer(t)
	group := srv.createGroup(t, alice, "Roommates", bob)
	client := srv.expenses(t, alice)

	create := func(description string, typ models.ExpenseType, groupID string) {
		t.Helper()
		_, err := client.CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
			Description:  description,
			Amount:       "10",
			Date:         testDate,
			PayerID:      "alice",
			Strategy:     models.SplitEqual,
			Type:         typ,
			GroupID:      groupID,
			Participants: []models.Participant{alice, bob},
		}))
		if err != nil {
			t.Fatalf("CreateExpense %s failed: %v", description, err)
		}
	}
	create("Rent", models.ExpenseGroup, group.ID)
	create("Power", models.ExpenseGroup, group.ID)
	create("Lunch", models.ExpenseIndividual, "")

	byGroup, err := srv.expenses(t, bob).ListExpenses(context.Background(), connect.NewRequest(&api.ListExpensesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListExpenses by group failed: %v", err)
	}
	if len(byGroup.Msg.Expenses) != 2 {
		t.Errorf("expected 2 group expenses, got %d", len(byGroup.Msg.Expenses))
	}

	individual, err := srv.expenses(t, bob).ListExpenses(context.Background(), connect.NewRequest(&api.ListExpensesRequest{}))
	if err != nil {
		t.Fatalf("ListExpenses individual failed: %v", err)
	}
	if len(individual.Msg.Expenses) != 1 || individual.Msg.Expenses[0].Description != "Lunch" {
		t.Errorf("expected only the lunch expense, got %+v", individual.Msg.Expenses)
	}

	_, err = srv.expenses(t, diana).ListExpenses(context.Background(), connect.NewRequest(&api.ListExpensesRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodePermissionDenied)
}

func TestDeleteExpense(t *testing.T) {
	srv := setupTestServer(t)
	client := srv.expenses(t, alice)

	created, err := client.CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Description: "Snacks",
		Amount:      "3.99",
		Date:        testDate,
		PayerID:     "alice",
		Strategy:    models.SplitEqual,
		Type:        models.ExpenseIndividual,
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	id := created.Msg.Expense.ID

	_, err = srv.expenses(t, bob).DeleteExpense(context.Background(), connect.NewRequest(&api.DeleteExpenseRequest{ExpenseID: id}))
	assertCode(t, err, connect.CodePermissionDenied)

	if _, err := client.DeleteExpense(context.Background(), connect.NewRequest(&api.DeleteExpenseRequest{ExpenseID: id})); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}

	_, err = client.GetExpense(context.Background(), connect.NewRequest(&api.GetExpenseRequest{ExpenseID: id}))
	assertCode(t, err, connect.CodeNotFound)

	_, err = client.DeleteExpense(context.Background(), connect.NewRequest(&api.DeleteExpenseRequest{ExpenseID: id}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestListCategories(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := srv.expenses(t, alice).ListCategories(context.Background(), connect.NewRequest(&api.ListCategoriesRequest{}))
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(resp.Msg.Categories) != len(models.DefaultCategories) {
		t.Errorf("expected %d categories, got %d", len(models.DefaultCategories), len(resp.Msg.Categories))
	}
}
