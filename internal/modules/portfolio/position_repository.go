package portfolio

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// PositionRepository rolls the transaction ledger up into per-symbol
// positions. Holdings are always derived from the signed quantity sum,
// never stored.
type PositionRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(ledgerDB *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "position").Logger(),
	}
}

const aggregateQuery = `
	SELECT
		stock_symbol,
		SUM(quantity),
		SUM(CASE WHEN quantity > 0 THEN quantity ELSE 0 END),
		SUM(CASE WHEN quantity > 0 THEN quantity * price ELSE 0 END)
	FROM transactions
	WHERE user_id = ?
`

// AggregateAll returns the ledger rollup for every symbol the user has
// ever transacted, including closed positions.
func (r *PositionRepository) AggregateAll(userID int64) ([]positionAggregate, error) {
	rows, err := r.ledgerDB.Query(aggregateQuery+`
		GROUP BY stock_symbol
		ORDER BY stock_symbol ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate positions: %w", err)
	}
	defer rows.Close()

	var aggs []positionAggregate
	for rows.Next() {
		var agg positionAggregate
		err := rows.Scan(&agg.Symbol, &agg.NetQuantity, &agg.BuyQuantity, &agg.BuyCost)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		aggs = append(aggs, agg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return aggs, nil
}

// AggregateSymbol returns the ledger rollup for one symbol, or found =
// false when the user never transacted it.
func (r *PositionRepository) AggregateSymbol(userID int64, symbol string) (positionAggregate, bool, error) {
	var agg positionAggregate
	var sym sql.NullString
	var net, buyQty sql.NullInt64
	var buyCost sql.NullFloat64

	err := r.ledgerDB.QueryRow(aggregateQuery+`
		AND stock_symbol = ?
	`, userID, strings.ToUpper(strings.TrimSpace(symbol))).Scan(&sym, &net, &buyQty, &buyCost)
	if err != nil {
		return agg, false, fmt.Errorf("failed to aggregate position: %w", err)
	}

	// An aggregate over zero rows yields NULLs rather than no row.
	if !sym.Valid {
		return agg, false, nil
	}

	agg.Symbol = sym.String
	agg.NetQuantity = net.Int64
	agg.BuyQuantity = buyQty.Int64
	agg.BuyCost = buyCost.Float64
	return agg, true, nil
}
