// Package expense turns raw expense submissions into validated records.
package expense

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmynk/expensesplit/internal/calculator"
	"github.com/mmynk/expensesplit/internal/models"
)

// Warning is a non-fatal note attached to an assembled expense.
type Warning string

const (
	// WarningSingleMemberGroup flags a group expense whose group has one member.
	WarningSingleMemberGroup Warning = "group has only one member"
	// WarningEqualSplitFallback flags a submission that arrived without shares
	// or split inputs and was split equally instead.
	WarningEqualSplitFallback Warning = "no split provided, split equally among all participants"
)

// RawInput is an expense submission as it arrives from a form or RPC.
type RawInput struct {
	Description string               `json:"description" validate:"required"`
	Amount      string               `json:"amount" validate:"required"`
	Category    string               `json:"category"`
	Date        time.Time            `json:"date" validate:"required"`
	PayerID     string               `json:"payer_id" validate:"required"`
	Strategy    models.SplitStrategy `json:"strategy" validate:"required,oneof=equal percentage exact"`
	Type        models.ExpenseType   `json:"type" validate:"required,oneof=individual group"`

	// Participants chosen for an individual expense. Empty means the
	// submitter is paying for themselves.
	Participants []models.Participant `json:"participants"`

	// Group is the resolved group for a group expense; nil if none chosen.
	Group *models.Group `json:"-"`

	// Inputs holds one percentage or amount per participant, in
	// participant order, for percentage and exact splits.
	Inputs []decimal.Decimal `json:"inputs"`

	// Shares is a share list the caller already computed or edited.
	// When non-empty it is validated as is and never recomputed.
	Shares []models.ShareLine `json:"shares"`
}

// CategorySource supplies the set of valid category identifiers.
type CategorySource interface {
	Categories() []string
}

// StaticCategories is a fixed CategorySource.
type StaticCategories []string

func (c StaticCategories) Categories() []string { return c }

// Result is an assembled expense and any warnings raised along the way.
type Result struct {
	Record   models.ExpenseRecord
	Warnings []Warning
}

// Assembler builds ExpenseRecords. It holds no per-call state and is safe
// for concurrent use.
type Assembler struct {
	validate   *validator.Validate
	categories map[string]bool
}

// NewAssembler creates an Assembler that accepts the categories from source.
func NewAssembler(source CategorySource) *Assembler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	categories := make(map[string]bool)
	for _, c := range source.Categories() {
		categories[c] = true
	}
	return &Assembler{validate: v, categories: categories}
}

// Assemble validates in and returns a normalized record for persistence.
// current is the authenticated participant submitting the expense.
//
// Failures are returned as *AssemblyError wrapping the cause, so callers can
// use errors.Is against the calculator and expense sentinels. Assemble has
// no side effects and returns identical results for identical input.
func (a *Assembler) Assemble(current models.Participant, in RawInput) (*Result, error) {
	total, err := a.checkInput(in)
	if err != nil {
		return nil, err
	}

	category, err := a.category(in.Category)
	if err != nil {
		return nil, err
	}

	var warnings []Warning
	participants, groupID, err := resolveParticipants(current, in)
	if err != nil {
		return nil, err
	}
	if in.Type == models.ExpenseGroup && len(participants) == 1 {
		slog.Warn("Group expense with a single member", "group_id", groupID)
		warnings = append(warnings, WarningSingleMemberGroup)
	}

	shares, err := a.shares(in, total, participants)
	if err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		slog.Warn("No split provided, falling back to equal split",
			"strategy", in.Strategy,
			"participants", len(participants),
		)
		shares, err = calculator.ComputeShares(models.SplitEqual, total, participants, nil)
		if err != nil {
			return nil, fieldError("shares", err)
		}
		warnings = append(warnings, WarningEqualSplitFallback)
	}
	shares = calculator.MarkPayer(shares, in.PayerID)

	if err := calculator.ValidateShares(shares, total, in.PayerID, participants); err != nil {
		return nil, fieldError("shares", err)
	}

	return &Result{
		Record: models.ExpenseRecord{
			Description: strings.TrimSpace(in.Description),
			Total:       total,
			Category:    category,
			Date:        in.Date,
			PayerID:     in.PayerID,
			Strategy:    in.Strategy,
			Shares:      shares,
			GroupID:     groupID,
			CreatedBy:   current.ID,
		},
		Warnings: warnings,
	}, nil
}

// checkInput validates struct fields and parses the amount.
func (a *Assembler) checkInput(in RawInput) (decimal.Decimal, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := a.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return decimal.Zero, fieldError(fe.Field(), fmt.Errorf("%w: failed %q check", ErrInvalidInput, fe.Tag()))
		}
		return decimal.Zero, fieldError("", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	total, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil || !total.IsPositive() || !total.Equal(total.Truncate(calculator.CentPlaces)) {
		return decimal.Zero, fieldError("amount", ErrInvalidAmount)
	}
	return total, nil
}

func (a *Assembler) category(category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return models.CategoryOther, nil
	}
	if !a.categories[category] {
		return "", fieldError("category", fmt.Errorf("%w: %q", ErrUnknownCategory, category))
	}
	return category, nil
}

// resolveParticipants picks the participant set and group ID for in.
func resolveParticipants(current models.Participant, in RawInput) ([]models.Participant, string, error) {
	if in.Type == models.ExpenseGroup {
		if in.Group == nil || in.Group.ID == "" {
			return nil, "", fieldError("group_id", ErrGroupNotSelected)
		}
		if len(in.Group.Members) == 0 {
			return nil, "", fieldError("group_id", calculator.ErrNoParticipants)
		}
		return in.Group.Members, in.Group.ID, nil
	}

	if len(in.Participants) == 0 {
		return []models.Participant{current}, "", nil
	}
	return in.Participants, "", nil
}

// shares returns the caller's shares, or computes them from the strategy
// inputs. An empty result means the caller supplied nothing to split by.
func (a *Assembler) shares(in RawInput, total decimal.Decimal, participants []models.Participant) ([]models.ShareLine, error) {
	if len(in.Shares) > 0 {
		return in.Shares, nil
	}
	if in.Strategy != models.SplitEqual && len(in.Inputs) == 0 {
		return nil, nil
	}
	shares, err := calculator.ComputeShares(in.Strategy, total, participants, in.Inputs)
	if err != nil {
		return nil, fieldError("inputs", err)
	}
	return shares, nil
}

// NavigationTarget is where a client should go after submitting rec: the
// group for a group expense, otherwise the first other participant, or the
// submitter when they paid only for themselves.
func NavigationTarget(current models.Participant, rec models.ExpenseRecord) string {
	if rec.IsGroupExpense() {
		return rec.GroupID
	}
	for _, s := range rec.Shares {
		if s.ParticipantID != current.ID {
			return s.ParticipantID
		}
	}
	return current.ID
}
