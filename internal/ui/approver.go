// Package ui asks the user to confirm destructive operations.
package ui

import "context"

// Approver confirms an operation that destroys data in a database.
//
// Implementations:
//   - ForcedApprover: shows a countdown and approves unless cancelled
//   - InteractiveApprover: asks the user to type the database ID
type Approver interface {
	// RequestApproval returns true when the operation on databaseID may proceed.
	RequestApproval(ctx context.Context, databaseID string) (bool, error)
}
