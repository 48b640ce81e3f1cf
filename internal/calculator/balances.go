package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/expensesplit/internal/models"
)

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	ParticipantID string
	NetBalance    decimal.Decimal // Positive = owed money, Negative = owes money
	TotalPaid     decimal.Decimal // Total amount paid across all expenses and settlements
	TotalOwed     decimal.Decimal // Total amount this person owes
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// CalculateGroupBalances computes balances across expenses and settlements.
// It aggregates who paid what and who owes what, returning member balances
// sorted by participant ID and a simplified list of debts.
//
// Algorithm:
// - For each expense: payer is credited the sum of its share lines (not the
//   total), each share line owes its amount, so net balances always cancel
// - For each settlement: payer's balance improves, receiver's balance decreases
// - Aggregate: net_balance = total_paid - total_owed
// - Debts: greedy matching of largest debtor against largest creditor
func CalculateGroupBalances(expenses []models.ExpenseRecord, settlements []models.Settlement) ([]MemberBalance, []DebtEdge, error) {
	balances := make(map[string]*MemberBalance)
	member := func(id string) *MemberBalance {
		if _, exists := balances[id]; !exists {
			balances[id] = &MemberBalance{ParticipantID: id}
		}
		return balances[id]
	}

	for _, e := range expenses {
		if e.PayerID == "" {
			return nil, nil, fmt.Errorf("expense %s has no payer", e.ID)
		}
		payer := member(e.PayerID)
		payer.TotalPaid = payer.TotalPaid.Add(SumShares(e.Shares))
		for _, s := range e.Shares {
			m := member(s.ParticipantID)
			m.TotalOwed = m.TotalOwed.Add(s.Amount)
		}
	}

	for _, s := range settlements {
		if !s.Amount.IsPositive() {
			return nil, nil, fmt.Errorf("settlement %s has non-positive amount %s", s.ID, s.Amount)
		}
		from := member(s.FromParticipantID)
		from.TotalPaid = from.TotalPaid.Add(s.Amount)
		to := member(s.ToParticipantID)
		to.TotalOwed = to.TotalOwed.Add(s.Amount)
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, bal := range balances {
		bal.NetBalance = bal.TotalPaid.Sub(bal.TotalOwed)
		memberBalances = append(memberBalances, *bal)
	}
	sort.Slice(memberBalances, func(i, j int) bool {
		return memberBalances[i].ParticipantID < memberBalances[j].ParticipantID
	})

	return memberBalances, simplifyDebts(memberBalances), nil
}

type position struct {
	id     string
	amount decimal.Decimal
}

// simplifyDebts matches debtors with creditors to minimize transactions.
// Ties are broken by participant ID so the result is deterministic.
func simplifyDebts(balances []MemberBalance) []DebtEdge {
	var creditors, debtors []position
	for _, bal := range balances {
		switch {
		case bal.NetBalance.IsPositive():
			creditors = append(creditors, position{bal.ParticipantID, bal.NetBalance})
		case bal.NetBalance.IsNegative():
			debtors = append(debtors, position{bal.ParticipantID, bal.NetBalance.Neg()})
		}
	}
	byAmount := func(p []position) func(i, j int) bool {
		return func(i, j int) bool {
			if c := p[i].amount.Cmp(p[j].amount); c != 0 {
				return c > 0
			}
			return p[i].id < p[j].id
		}
	}
	sort.Slice(creditors, byAmount(creditors))
	sort.Slice(debtors, byAmount(debtors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.IsPositive() {
			edges = append(edges, DebtEdge{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: amount,
			})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if !debtors[i].amount.IsPositive() {
			i++
		}
		if !creditors[j].amount.IsPositive() {
			j++
		}
	}
	return edges
}
