package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitStrategy determines how an expense total is divided among participants.
type SplitStrategy string

const (
	// SplitEqual divides the total evenly; no per-participant input.
	SplitEqual SplitStrategy = "equal"
	// SplitPercentage divides the total by a percentage per participant.
	SplitPercentage SplitStrategy = "percentage"
	// SplitExact takes an explicit amount per participant.
	SplitExact SplitStrategy = "exact"
)

// Valid reports whether s is a known strategy.
func (s SplitStrategy) Valid() bool {
	switch s {
	case SplitEqual, SplitPercentage, SplitExact:
		return true
	}
	return false
}

// ExpenseType distinguishes individual expenses from group expenses.
type ExpenseType string

const (
	ExpenseIndividual ExpenseType = "individual"
	ExpenseGroup      ExpenseType = "group"
)

// ShareLine is one participant's portion of an expense.
type ShareLine struct {
	// ParticipantID references a Participant of the expense.
	ParticipantID string `json:"participant_id"`

	// Amount is the non-negative share in the expense currency.
	Amount decimal.Decimal `json:"amount"`

	// IsPayer is true only for the participant who fronted the money.
	// It is derived from ExpenseRecord.PayerID and never set independently.
	IsPayer bool `json:"is_payer"`
}

// ExpenseRecord is a normalized expense ready to hand to persistence.
//
// Invariants (enforced by the assembler, not by this type):
//   - Total > 0
//   - Shares is non-empty and participant IDs are unique
//   - PayerID appears among the shares, on exactly one IsPayer line
//   - sum(Shares.Amount) is within one cent of Total
//   - GroupID is set iff the expense is a group expense
type ExpenseRecord struct {
	// ID is assigned by persistence; empty until stored.
	ID string `json:"id,omitempty"`

	Description string          `json:"description"`
	Total       decimal.Decimal `json:"total"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	PayerID     string          `json:"payer_id"`
	Strategy    SplitStrategy   `json:"strategy"`
	Shares      []ShareLine     `json:"shares"`

	// GroupID is empty for individual expenses.
	GroupID string `json:"group_id,omitempty"`

	// CreatedBy is the participant who submitted the expense.
	CreatedBy string `json:"created_by"`

	// CreatedAt is the Unix timestamp assigned by persistence.
	CreatedAt int64 `json:"created_at,omitempty"`
}

// IsGroupExpense reports whether the record belongs to a group.
func (r *ExpenseRecord) IsGroupExpense() bool {
	return r.GroupID != ""
}

// HasParticipant reports whether the participant holds a share line.
func (r *ExpenseRecord) HasParticipant(participantID string) bool {
	for _, s := range r.Shares {
		if s.ParticipantID == participantID {
			return true
		}
	}
	return false
}
