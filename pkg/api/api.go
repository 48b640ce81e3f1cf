// Package api defines the request and response messages of the expense
// and group services. Amounts travel as decimal strings.
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/expensesplit/internal/models"
)

// PreviewSplitRequest asks for shares without storing anything.
type PreviewSplitRequest struct {
	Strategy     models.SplitStrategy `json:"strategy"`
	Total        decimal.Decimal      `json:"total"`
	PayerID      string               `json:"payer_id"`
	Participants []models.Participant `json:"participants"`
	Inputs       []decimal.Decimal    `json:"inputs,omitempty"`
}

// PreviewSplitResponse carries the computed shares. ValidationError is set
// when the shares do not reconcile, so a form can show the delta inline.
type PreviewSplitResponse struct {
	Shares          []models.ShareLine `json:"shares"`
	Sum             decimal.Decimal    `json:"sum"`
	Delta           decimal.Decimal    `json:"delta"`
	ValidationError string             `json:"validation_error,omitempty"`
}

type CreateExpenseRequest struct {
	Description  string               `json:"description"`
	Amount       string               `json:"amount"`
	Category     string               `json:"category,omitempty"`
	Date         time.Time            `json:"date"`
	PayerID      string               `json:"payer_id"`
	Strategy     models.SplitStrategy `json:"strategy"`
	Type         models.ExpenseType   `json:"type"`
	GroupID      string               `json:"group_id,omitempty"`
	Participants []models.Participant `json:"participants,omitempty"`
	Inputs       []decimal.Decimal    `json:"inputs,omitempty"`
	Shares       []models.ShareLine   `json:"shares,omitempty"`
}

type CreateExpenseResponse struct {
	Expense  *models.ExpenseRecord `json:"expense"`
	Warnings []string              `json:"warnings,omitempty"`
	// RedirectID is the group or participant a client should show next.
	RedirectID string `json:"redirect_id"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type GetExpenseResponse struct {
	Expense *models.ExpenseRecord `json:"expense"`
}

// ListExpensesRequest lists a group's expenses when GroupID is set, or the
// caller's individual expenses otherwise.
type ListExpensesRequest struct {
	GroupID string `json:"group_id,omitempty"`
}

type ListExpensesResponse struct {
	Expenses []*models.ExpenseRecord `json:"expenses"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}

type ListCategoriesRequest struct{}

type ListCategoriesResponse struct {
	Categories []string `json:"categories"`
}

type CreateGroupRequest struct {
	Name    string               `json:"name"`
	Members []models.Participant `json:"members"`
}

type CreateGroupResponse struct {
	Group *models.Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group *models.Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*models.Group `json:"groups"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id"`
}

// MemberBalance is one member's position in a group.
// A positive NetBalance means the member is owed money.
type MemberBalance struct {
	ParticipantID string          `json:"participant_id"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalOwed     decimal.Decimal `json:"total_owed"`
	NetBalance    decimal.Decimal `json:"net_balance"`
}

// Debt is a suggested payment that settles part of the group's balances.
type Debt struct {
	FromParticipantID string          `json:"from_participant_id"`
	ToParticipantID   string          `json:"to_participant_id"`
	Amount            decimal.Decimal `json:"amount"`
}

type GetGroupBalancesResponse struct {
	Balances []MemberBalance `json:"balances"`
	Debts    []Debt          `json:"debts"`
}

type RecordSettlementRequest struct {
	GroupID           string          `json:"group_id"`
	FromParticipantID string          `json:"from_participant_id"`
	ToParticipantID   string          `json:"to_participant_id"`
	Amount            decimal.Decimal `json:"amount"`
	Note              string          `json:"note,omitempty"`
}

type RecordSettlementResponse struct {
	Settlement *models.Settlement `json:"settlement"`
}

type ListSettlementsRequest struct {
	GroupID string `json:"group_id"`
}

type ListSettlementsResponse struct {
	Settlements []*models.Settlement `json:"settlements"`
}
