// Package models defines the core domain models for expense splitting.
//
// # Models
//
//   - Participant: a person taking part in an expense, identified by an opaque ID
//   - ExpenseRecord: a normalized, validated expense ready for persistence
//   - ShareLine: one participant's portion of an expense
//   - Group: a set of participants that share expenses over time
//   - Settlement: a payment between two group members that clears debt
//
// # Design Principles
//
//  1. **Fixed-point money**: every amount is a decimal.Decimal, never a float
//  2. **Immutable records**: the core builds a new ExpenseRecord per submission
//     and never edits one in place
//  3. **Avoid circular references**: relationships use ID strings, not pointers
//  4. **Derived flags**: ShareLine.IsPayer is computed from ExpenseRecord.PayerID
package models
