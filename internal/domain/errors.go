// Package domain holds shared domain errors and their client-visible kinds.
package domain

import "errors"

// Sentinel errors returned by services and repositories. Handlers map
// these to HTTP statuses; everything else is a 500.
var (
	ErrStockNotFound      = errors.New("stock not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrNoPosition         = errors.New("no transactions for this stock")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInvalidQuantity    = errors.New("quantity must be a positive integer")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAlreadyWatched     = errors.New("stock already on watchlist")
	ErrNotWatched         = errors.New("stock not on watchlist")
)

// Kind returns a stable machine-readable code for a domain error, or
// "internal" for anything unrecognized. Clients should branch on this
// rather than on the human-readable message.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrStockNotFound):
		return "stock_not_found"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrNoPosition):
		return "no_position"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAlreadyWatched):
		return "already_watched"
	case errors.Is(err, ErrNotWatched):
		return "not_watched"
	default:
		return "internal"
	}
}

// HTTPStatus returns the HTTP status code a domain error maps to.
// Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrStockNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrNoPosition),
		errors.Is(err, ErrNotWatched):
		return 404
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInsufficientShares),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrAlreadyWatched):
		return 400
	case errors.Is(err, ErrInvalidCredentials):
		return 401
	default:
		return 500
	}
}
