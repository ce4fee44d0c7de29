package db

import "context"

// Client is the swear jar ledger. It only ever appends; sums over no rows are zero.
type Client interface {
	Close() error

	RecordSwear(ctx context.Context, userID, userName, word string, fineCents int64) error
	RecordSwears(ctx context.Context, records []*SwearRecord) error
	RecordPayment(ctx context.Context, userID, userName string, amountCents int64) error

	TotalFines(ctx context.Context) (int64, error)
	TotalFinesFor(ctx context.Context, userID string) (int64, error)
	TotalPaymentsFor(ctx context.Context, userID string) (int64, error)
	RecentSwears(ctx context.Context, userID string, limit int) ([]*SwearEntry, error)
	Leaderboard(ctx context.Context) ([]*LeaderboardEntry, error)
}
