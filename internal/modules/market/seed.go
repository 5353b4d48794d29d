package market

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
)

// seedStocks is the default instrument universe, created on first boot
// when the stocks table is empty.
var seedStocks = []Stock{
	{Symbol: "GOOG", Name: "Alphabet Inc.", Price: 2842.50},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Price: 325.80},
	{Symbol: "AMZN", Name: "Amazon.com, Inc.", Price: 3372.20},
	{Symbol: "TSLA", Name: "Tesla, Inc.", Price: 709.40},
	{Symbol: "FB", Name: "Meta Platforms, Inc.", Price: 333.75},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Price: 256.80},
	{Symbol: "JPM", Name: "JPMorgan Chase & Co.", Price: 163.05},
	{Symbol: "V", Name: "Visa Inc.", Price: 230.10},
	{Symbol: "JNJ", Name: "Johnson & Johnson", Price: 172.45},
	{Symbol: "WMT", Name: "Walmart Inc.", Price: 148.90},
	{Symbol: "PG", Name: "Procter & Gamble Company", Price: 141.20},
	{Symbol: "DIS", Name: "The Walt Disney Company", Price: 185.30},
	{Symbol: "NFLX", Name: "Netflix, Inc.", Price: 549.60},
	{Symbol: "PYPL", Name: "PayPal Holdings, Inc.", Price: 269.55},
	{Symbol: "ADBE", Name: "Adobe Inc.", Price: 633.85},
	{Symbol: "INTC", Name: "Intel Corporation", Price: 53.70},
	{Symbol: "CRM", Name: "Salesforce, Inc.", Price: 260.40},
	{Symbol: "AMD", Name: "Advanced Micro Devices, Inc.", Price: 109.15},
}

// SeedIfEmpty populates the stock universe on first boot. Prices get a
// ±5% jitter so fresh installs don't all start identical.
func SeedIfEmpty(repo *StockRepository, log zerolog.Logger) error {
	count, err := repo.Count()
	if err != nil {
		return fmt.Errorf("failed to check stock count: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, stock := range seedStocks {
		stock.Price = round2(stock.Price * (1 + (rand.Float64()-0.5)/10))
		if err := repo.Create(stock); err != nil {
			return fmt.Errorf("failed to seed stock %s: %w", stock.Symbol, err)
		}
	}

	log.Info().Int("count", len(seedStocks)).Msg("Seeded stock universe")
	return nil
}
