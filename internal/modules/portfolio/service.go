// Package portfolio derives holdings and valuation views by replaying
// the transaction ledger against current market prices.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/domain"
	"github.com/faketrading/backend/internal/modules/accounts"
	"github.com/faketrading/backend/internal/modules/market"
	"github.com/faketrading/backend/internal/modules/trading"
)

// historyBaseline is the assumed portfolio value 30 days ago, matching
// the cash every account starts with.
const (
	historyBaseline     = 100000.00
	historySpanDays     = 30
	historyMidpointDays = 15
)

// Service computes portfolio views. The ledger is the source of truth;
// nothing here is cached or stored.
type Service struct {
	positions    *PositionRepository
	transactions *trading.TransactionRepository
	accountsRepo *accounts.AccountRepository
	stocks       *market.StockRepository
	log          zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	positions *PositionRepository,
	transactions *trading.TransactionRepository,
	accountsRepo *accounts.AccountRepository,
	stocks *market.StockRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		positions:    positions,
		transactions: transactions,
		accountsRepo: accountsRepo,
		stocks:       stocks,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// GetHoldings returns the user's open positions with valuation fields.
// Symbols whose net quantity is zero or negative are excluded.
func (s *Service) GetHoldings(userID int64) ([]Holding, error) {
	aggs, err := s.positions.AggregateAll(userID)
	if err != nil {
		return nil, err
	}

	holdings := make([]Holding, 0, len(aggs))
	for _, agg := range aggs {
		if agg.NetQuantity <= 0 {
			continue
		}

		holding, err := s.value(agg)
		if err != nil {
			if errors.Is(err, domain.ErrStockNotFound) {
				// A transacted symbol missing from the price store is a
				// data problem, not a reason to fail the whole view.
				s.log.Warn().Str("symbol", agg.Symbol).Msg("Held stock missing from price store")
				continue
			}
			return nil, err
		}
		holdings = append(holdings, holding)
	}

	return holdings, nil
}

// GetSummary returns cash, holdings and total portfolio value.
func (s *Service) GetSummary(userID int64) (*Summary, error) {
	cash, err := s.accountsRepo.GetCash(userID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.GetHoldings(userID)
	if err != nil {
		return nil, err
	}

	total := cash
	for _, h := range holdings {
		total += h.Value
	}

	return &Summary{
		CashBalance: cash,
		Holdings:    holdings,
		TotalValue:  round2(total),
	}, nil
}

// GetStockDetail returns the valuation of one position along with its
// full transaction list. Fails with ErrNoPosition when the user has
// never transacted the symbol.
func (s *Service) GetStockDetail(userID int64, symbol string) (*Holding, []trading.Transaction, error) {
	agg, found, err := s.positions.AggregateSymbol(userID, symbol)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, domain.ErrNoPosition
	}

	holding, err := s.value(agg)
	if err != nil {
		return nil, nil, err
	}

	txns, err := s.transactions.GetByUserAndSymbol(userID, symbol)
	if err != nil {
		return nil, nil, err
	}

	return &holding, txns, nil
}

// GetPortfolioHistory returns a synthetic 3-point value series: the
// starting balance 30 days ago, the midpoint 15 days ago, and the
// current total value now. Only the final point is observed.
func (s *Service) GetPortfolioHistory(userID int64) ([]HistoryPoint, error) {
	summary, err := s.GetSummary(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	current := summary.TotalValue
	midpoint := round2((historyBaseline + current) / 2)

	return []HistoryPoint{
		{Date: now.AddDate(0, 0, -historySpanDays), Value: historyBaseline, Synthetic: true},
		{Date: now.AddDate(0, 0, -historyMidpointDays), Value: midpoint, Synthetic: true},
		{Date: now, Value: current, Synthetic: false},
	}, nil
}

// value prices a ledger rollup. The average buy price is weighted over
// buy transactions only, so cost basis never moves on a sell.
func (s *Service) value(agg positionAggregate) (Holding, error) {
	stock, err := s.stocks.GetBySymbol(agg.Symbol)
	if err != nil {
		return Holding{}, fmt.Errorf("failed to price position %s: %w", agg.Symbol, err)
	}

	avgBuyPrice := 0.0
	if agg.BuyQuantity > 0 {
		avgBuyPrice = agg.BuyCost / float64(agg.BuyQuantity)
	}

	value := round2(stock.Price * float64(agg.NetQuantity))
	costBasis := avgBuyPrice * float64(agg.NetQuantity)
	gainLoss := round2(value - costBasis)

	gainLossPct := 0.0
	if costBasis != 0 {
		gainLossPct = round2(gainLoss / costBasis * 100)
	}

	return Holding{
		Symbol:       stock.Symbol,
		Name:         stock.Name,
		Quantity:     agg.NetQuantity,
		AvgBuyPrice:  round2(avgBuyPrice),
		CurrentPrice: stock.Price,
		Value:        value,
		GainLoss:     gainLoss,
		GainLossPct:  gainLossPct,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
