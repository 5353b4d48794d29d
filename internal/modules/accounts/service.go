// Package accounts owns users, their cash accounts and the auth
// surface. Registration creates the user row and its account in one
// ledger transaction so no user ever exists without a balance.
package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/faketrading/backend/internal/database"
	"github.com/faketrading/backend/internal/domain"
)

// Profile is the public view of a user's identity and cash balance.
type Profile struct {
	UserID   int64   `json:"user_id"`
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
}

// Service implements registration, login and profile lookups.
type Service struct {
	ledgerDB     *sql.DB
	users        *UserRepository
	accountsRepo *AccountRepository
	tokens       *TokenIssuer
	log          zerolog.Logger
}

// NewService creates a new accounts service
func NewService(
	ledgerDB *sql.DB,
	users *UserRepository,
	accountsRepo *AccountRepository,
	tokens *TokenIssuer,
	log zerolog.Logger,
) *Service {
	return &Service{
		ledgerDB:     ledgerDB,
		users:        users,
		accountsRepo: accountsRepo,
		tokens:       tokens,
		log:          log.With().Str("service", "accounts").Logger(),
	}
}

// Register creates a user and its account with the starting cash
// balance, both in one ledger transaction. The username is the email.
func (s *Service) Register(email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var userID int64
	err = database.WithTransaction(s.ledgerDB, func(tx *sql.Tx) error {
		userID, err = s.users.CreateTx(tx, email, email, string(hash))
		if err != nil {
			return err
		}
		return s.accountsRepo.CreateTx(tx, userID, StartingCash)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", userID).Msg("User registered")

	return s.users.GetByID(userID)
}

// Login verifies credentials and issues a token pair. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(email, password string) (*User, *TokenPair, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(refreshToken string) (*TokenPair, error) {
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	// The user may have been deleted since the token was issued.
	if _, err := s.users.GetByID(userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	return s.tokens.IssuePair(userID)
}

// VerifyAccess validates an access token and returns the user id.
func (s *Service) VerifyAccess(token string) (int64, error) {
	return s.tokens.VerifyAccess(token)
}

// GetProfile returns a user's username and cash balance.
func (s *Service) GetProfile(userID int64) (*Profile, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	cash, err := s.accountsRepo.GetCash(userID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		UserID:   user.ID,
		Username: user.Username,
		Balance:  cash,
	}, nil
}
