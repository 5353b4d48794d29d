package trading

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/database"
	"github.com/faketrading/backend/internal/domain"
	"github.com/faketrading/backend/internal/modules/accounts"
	"github.com/faketrading/backend/internal/modules/market"
)

// SettlementService executes buy and sell orders. Each order runs
// inside a single ledger transaction so the cash adjustment and the
// transaction record commit or roll back together.
type SettlementService struct {
	ledgerDB     *sql.DB
	stocks       *market.StockRepository
	accountsRepo *accounts.AccountRepository
	transactions *TransactionRepository
	log          zerolog.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	ledgerDB *sql.DB,
	stocks *market.StockRepository,
	accountsRepo *accounts.AccountRepository,
	transactions *TransactionRepository,
	log zerolog.Logger,
) *SettlementService {
	return &SettlementService{
		ledgerDB:     ledgerDB,
		stocks:       stocks,
		accountsRepo: accountsRepo,
		transactions: transactions,
		log:          log.With().Str("service", "settlement").Logger(),
	}
}

// Buy purchases quantity shares of symbol at the current simulated
// price, debiting the user's cash.
func (s *SettlementService) Buy(userID int64, symbol string, quantity int64) (*Receipt, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	stock, err := s.stocks.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}

	cost := round2(stock.Price * float64(quantity))
	orderID := uuid.New().String()
	executedAt := time.Now().UTC()

	var receipt *Receipt
	err = database.WithTransaction(s.ledgerDB, func(tx *sql.Tx) error {
		cash, err := s.accountsRepo.GetCashTx(tx, userID)
		if err != nil {
			return err
		}
		if cash < cost {
			return domain.ErrInsufficientFunds
		}

		if err := s.accountsRepo.AdjustCashTx(tx, userID, -cost); err != nil {
			return err
		}

		id, err := s.transactions.CreateTx(tx, Transaction{
			OrderID:    orderID,
			UserID:     userID,
			Symbol:     stock.Symbol,
			Quantity:   quantity,
			Price:      stock.Price,
			ExecutedAt: executedAt,
		})
		if err != nil {
			return err
		}

		receipt = &Receipt{
			TransactionID: id,
			OrderID:       orderID,
			Symbol:        stock.Symbol,
			Quantity:      quantity,
			Price:         stock.Price,
			Total:         cost,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("symbol", stock.Symbol).
		Int64("quantity", quantity).
		Float64("total", cost).
		Msg("Buy order settled")

	return receipt, nil
}

// Sell disposes of quantity shares of symbol at the current simulated
// price, crediting the user's cash. The user must hold at least
// quantity net shares.
func (s *SettlementService) Sell(userID int64, symbol string, quantity int64) (*Receipt, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	stock, err := s.stocks.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}

	proceeds := round2(stock.Price * float64(quantity))
	orderID := uuid.New().String()
	executedAt := time.Now().UTC()

	var receipt *Receipt
	err = database.WithTransaction(s.ledgerDB, func(tx *sql.Tx) error {
		// The cash read doubles as the existence check so an unknown
		// user fails before the holdings query.
		if _, err := s.accountsRepo.GetCashTx(tx, userID); err != nil {
			return err
		}

		held, err := s.transactions.NetQuantityTx(tx, userID, stock.Symbol)
		if err != nil {
			return err
		}
		if held < quantity {
			return domain.ErrInsufficientShares
		}

		if err := s.accountsRepo.AdjustCashTx(tx, userID, proceeds); err != nil {
			return err
		}

		id, err := s.transactions.CreateTx(tx, Transaction{
			OrderID:    orderID,
			UserID:     userID,
			Symbol:     stock.Symbol,
			Quantity:   -quantity,
			Price:      stock.Price,
			ExecutedAt: executedAt,
		})
		if err != nil {
			return err
		}

		receipt = &Receipt{
			TransactionID: id,
			OrderID:       orderID,
			Symbol:        stock.Symbol,
			Quantity:      -quantity,
			Price:         stock.Price,
			Total:         proceeds,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("symbol", stock.Symbol).
		Int64("quantity", quantity).
		Float64("total", proceeds).
		Msg("Sell order settled")

	return receipt, nil
}

// GetHistory returns a user's transaction log, most recent first.
func (s *SettlementService) GetHistory(userID int64, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	txns, err := s.transactions.GetHistory(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return txns, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
