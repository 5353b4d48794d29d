package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/domain"
)

// UserRepository handles user database operations.
type UserRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(ledgerDB *sql.DB, log zerolog.Logger) *UserRepository {
	return &UserRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "user").Logger(),
	}
}

// CreateTx inserts a new user inside an existing transaction and
// returns its id. A duplicate email maps to domain.ErrEmailTaken.
func (r *UserRepository) CreateTx(tx *sql.Tx, username, email, passwordHash string) (int64, error) {
	result, err := tx.Exec(`
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, username, normalizeEmail(email), passwordHash, time.Now().Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrEmailTaken
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get user id: %w", err)
	}

	return id, nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(id int64) (*User, error) {
	return r.scanOne(r.ledgerDB.QueryRow(`
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = ?
	`, id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(email string) (*User, error) {
	return r.scanOne(r.ledgerDB.QueryRow(`
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE email = ?
	`, normalizeEmail(email)))
}

func (r *UserRepository) scanOne(row *sql.Row) (*User, error) {
	var u User
	var createdAt int64
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isUniqueViolation matches the UNIQUE constraint error text from both
// sqlite drivers in use (modernc in production, mattn in tests).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
