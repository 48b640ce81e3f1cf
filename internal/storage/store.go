// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/expensesplit/internal/models"
)

// ErrNotFound is wrapped by stores when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for expense storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateExpense persists a finished expense record.
	// The record's ID and CreatedAt fields are populated by the store.
	CreateExpense(ctx context.Context, expense *models.ExpenseRecord) error

	// GetExpense retrieves an expense with its share lines.
	GetExpense(ctx context.Context, expenseID string) (*models.ExpenseRecord, error)

	// ListExpensesByGroup returns a group's expenses, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.ExpenseRecord, error)

	// ListIndividualExpenses returns the non-group expenses a participant
	// holds a share in, newest first.
	ListIndividualExpenses(ctx context.Context, participantID string) ([]*models.ExpenseRecord, error)

	// DeleteExpense removes an expense and its share lines.
	DeleteExpense(ctx context.Context, expenseID string) error

	// CreateGroup persists a new group with its members.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsByMember returns the groups a participant belongs to.
	ListGroupsByMember(ctx context.Context, participantID string) ([]*models.Group, error)

	// CreateSettlement records a payment between group members.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// ListSettlementsByGroup returns a group's settlements, newest first.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// Close releases any resources held by the store.
	Close() error
}
