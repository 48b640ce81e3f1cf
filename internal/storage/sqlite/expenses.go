package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/expensesplit/internal/models"
	"github.com/mmynk/expensesplit/internal/storage"
)

const expenseColumns = `id, description, total, category, expense_date, payer_id, strategy, group_id, created_by, created_at`

// CreateExpense persists a new expense and its share lines in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.ExpenseRecord) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.Description, expense.Total.String(), expense.Category,
		expense.Date.UnixMilli(), expense.PayerID, string(expense.Strategy),
		nullString(expense.GroupID), expense.CreatedBy, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, share := range expense.Shares {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_shares (expense_id, participant_id, amount, is_payer, position) VALUES (?, ?, ?, ?, ?)",
			expense.ID, share.ParticipantID, share.Amount.String(), share.IsPayer, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share for %s: %w", share.ParticipantID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, including its share lines.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.ExpenseRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`,
		expenseID,
	)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: expense %s", storage.ErrNotFound, expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := s.loadShares(ctx, []*models.ExpenseRecord{expense}); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpensesByGroup retrieves all expenses of a group, newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.ExpenseRecord, error) {
	return s.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE group_id = ? ORDER BY expense_date DESC, created_at DESC, id`,
		groupID,
	)
}

// ListIndividualExpenses retrieves non-group expenses the participant has a share in.
func (s *SQLiteStore) ListIndividualExpenses(ctx context.Context, participantID string) ([]*models.ExpenseRecord, error) {
	return s.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE group_id IS NULL
		   AND id IN (SELECT expense_id FROM expense_shares WHERE participant_id = ?)
		 ORDER BY expense_date DESC, created_at DESC, id`,
		participantID,
	)
}

// DeleteExpense removes an expense by ID. Share lines cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: expense %s", storage.ErrNotFound, expenseID)
	}
	return nil
}

func (s *SQLiteStore) listExpenses(ctx context.Context, query string, args ...any) ([]*models.ExpenseRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.ExpenseRecord
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if err := s.loadShares(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// shareBatchSize caps the expense IDs bound into one share query, keeping
// it under SQLite's host parameter limit.
var shareBatchSize = 500

// loadShares fills in share lines for the given expenses, one query per
// batch of shareBatchSize expenses.
func (s *SQLiteStore) loadShares(ctx context.Context, expenses []*models.ExpenseRecord) error {
	for start := 0; start < len(expenses); start += shareBatchSize {
		end := min(start+shareBatchSize, len(expenses))
		if err := s.loadShareBatch(ctx, expenses[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) loadShareBatch(ctx context.Context, expenses []*models.ExpenseRecord) error {
	byID := make(map[string]*models.ExpenseRecord, len(expenses))
	args := make([]any, len(expenses))
	for i, e := range expenses {
		byID[e.ID] = e
		args[i] = e.ID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT expense_id, participant_id, amount, is_payer FROM expense_shares
		 WHERE expense_id IN (`+placeholders(len(expenses))+`)
		 ORDER BY expense_id, position`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID string
		var share models.ShareLine
		if err := rows.Scan(&expenseID, &share.ParticipantID, &share.Amount, &share.IsPayer); err != nil {
			return fmt.Errorf("failed to scan share: %w", err)
		}
		if e, ok := byID[expenseID]; ok {
			e.Shares = append(e.Shares, share)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate shares: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.ExpenseRecord, error) {
	expense := &models.ExpenseRecord{}
	var dateMillis int64
	var strategy string
	var groupID sql.NullString

	err := row.Scan(&expense.ID, &expense.Description, &expense.Total, &expense.Category,
		&dateMillis, &expense.PayerID, &strategy, &groupID, &expense.CreatedBy, &expense.CreatedAt)
	if err != nil {
		return nil, err
	}

	expense.Date = time.UnixMilli(dateMillis).UTC()
	expense.Strategy = models.SplitStrategy(strategy)
	if groupID.Valid {
		expense.GroupID = groupID.String
	}
	return expense, nil
}
