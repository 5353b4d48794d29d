package accounts

import "time"

// User is a registered account holder.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Account holds the cash side of a user's ledger. Every user gets
// exactly one account, created in the same transaction as the user row.
type Account struct {
	UserID int64   `json:"user_id"`
	Cash   float64 `json:"cash"`
}

// StartingCash is credited to every account at registration.
const StartingCash = 100000.00
