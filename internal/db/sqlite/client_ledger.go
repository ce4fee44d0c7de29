package sqlite

import (
	"context"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"

	"github.com/iamwavecut/swearjar/internal/db"
)

const insertSwearQuery = `
	INSERT INTO swears (user_id, user_name, when_swore, swear_word, cents)
	VALUES (:user_id, :user_name, :when_swore, :swear_word, :cents)
`

func (c *sqliteClient) RecordSwear(ctx context.Context, userID, userName, word string, fineCents int64) error {
	return c.RecordSwears(ctx, []*db.SwearRecord{{
		UserID:    userID,
		UserName:  userName,
		SwearWord: word,
		Cents:     fineCents,
	}})
}

// RecordSwears appends all records in one transaction, stamping each with
// the current time.
func (c *sqliteClient) RecordSwears(ctx context.Context, records []*db.SwearRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "cant begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, insertSwearQuery)
	if err != nil {
		return errors.Wrap(err, "cant prepare swear insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, record := range records {
		row := *record
		row.WhenSwore = now
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return errors.Wrapf(err, "cant record swear %q", record.SwearWord)
		}
	}
	return errors.Wrap(tx.Commit(), "cant commit swears")
}

func (c *sqliteClient) RecordPayment(ctx context.Context, userID, userName string, amountCents int64) error {
	query := `
		INSERT INTO payments (user_id, user_name, when_paid, cents)
		VALUES (:user_id, :user_name, :when_paid, :cents)
	`
	return errors.Wrap(tool.Err(c.db.NamedExecContext(ctx, query, &db.PaymentRecord{
		UserID:   userID,
		UserName: userName,
		WhenPaid: time.Now().UTC(),
		Cents:    amountCents,
	})), "cant record payment")
}

func (c *sqliteClient) TotalFines(ctx context.Context) (int64, error) {
	var total int64
	err := c.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(cents), 0) FROM swears`)
	return total, err
}

func (c *sqliteClient) TotalFinesFor(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := c.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(cents), 0) FROM swears WHERE user_id = ?`, userID)
	return total, err
}

func (c *sqliteClient) TotalPaymentsFor(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := c.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(cents), 0) FROM payments WHERE user_id = ?`, userID)
	return total, err
}

func (c *sqliteClient) RecentSwears(ctx context.Context, userID string, limit int) ([]*db.SwearEntry, error) {
	entries := make([]*db.SwearEntry, 0)
	if limit <= 0 {
		return entries, nil
	}
	err := c.db.SelectContext(ctx, &entries, `
		SELECT when_swore, swear_word
		FROM swears
		WHERE user_id = ?
		ORDER BY when_swore DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	return entries, err
}

func (c *sqliteClient) Leaderboard(ctx context.Context) ([]*db.LeaderboardEntry, error) {
	entries := make([]*db.LeaderboardEntry, 0)
	err := c.db.SelectContext(ctx, &entries, `
		SELECT SUM(cents) AS total_cents, user_name
		FROM swears
		GROUP BY user_name
		ORDER BY total_cents DESC, MIN(rowid) ASC
	`)
	return entries, err
}
