package db

import "time"

type (
	// SwearRecord is one flagged word said by a user. Rows are append-only.
	SwearRecord struct {
		UserID    string    `db:"user_id"`
		UserName  string    `db:"user_name"`
		WhenSwore time.Time `db:"when_swore"`
		SwearWord string    `db:"swear_word"`
		Cents     int64     `db:"cents"`
	}

	// PaymentRecord is money put into the jar. Cents may be negative for corrections.
	PaymentRecord struct {
		UserID   string    `db:"user_id"`
		UserName string    `db:"user_name"`
		WhenPaid time.Time `db:"when_paid"`
		Cents    int64     `db:"cents"`
	}

	SwearEntry struct {
		WhenSwore time.Time `db:"when_swore"`
		SwearWord string    `db:"swear_word"`
	}

	LeaderboardEntry struct {
		TotalCents int64  `db:"total_cents"`
		UserName   string `db:"user_name"`
	}
)
