package smartsheet

import (
	"context"
	"iter"
)

// API defines the Smartsheet API operations offered by Client.
// Depend on it instead of *Client to substitute a fake in tests.
type API interface {
	// ============================================================================
	// Sheet Operations
	// ============================================================================

	ListSheets(ctx context.Context, opts *PageOptions) (*IndexResult[Sheet], error)
	GetSheet(ctx context.Context, sheetID int64) (*Sheet, error)
	DeleteSheet(ctx context.Context, sheetID int64) error
	Sheets(ctx context.Context) iter.Seq2[Sheet, error]

	// ============================================================================
	// User Operations
	// ============================================================================

	GetCurrentUser(ctx context.Context) (*UserProfile, error)
	ListUsers(ctx context.Context, opts *PageOptions) (*IndexResult[User], error)
	Users(ctx context.Context) iter.Seq2[User, error]
}

var _ API = (*Client)(nil)
