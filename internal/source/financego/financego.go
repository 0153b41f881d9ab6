// Package financego adapts github.com/piquette/finance-go as the Yahoo
// adapter's last-resort aggregator backend.
package financego

import (
	"context"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"pricesource/internal/source"
)

const providerName = "finance-go"

// Aggregator satisfies yahoo.Aggregator using the finance-go quote API.
type Aggregator struct{}

func New() Aggregator { return Aggregator{} }

// Quote fetches a present-moment price. finance-go's client is
// package-global and does not take a context, so cancellation is bounded
// only by its own transport timeout.
func (Aggregator) Quote(_ context.Context, ticker string) (source.Quote, error) {
	q, err := quote.Get(ticker)
	if err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindNetwork, Ticker: ticker, Msg: "fetching quote", Err: err}
	}
	return fromFinanceQuote(ticker, q)
}

// fromFinanceQuote converts a finance-go quote into the normalized record.
// A zero price signals missing data, not a real market price.
func fromFinanceQuote(ticker string, q *finance.Quote) (source.Quote, error) {
	if q == nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "empty quote"}
	}
	price := decimal.NewFromFloat(q.RegularMarketPrice)
	if price.IsZero() {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "zero price in quote"}
	}
	currency := q.CurrencyID
	if currency == "" {
		currency = "USD"
	}
	return source.Quote{Price: price, Time: time.Now().UTC(), Currency: currency}, nil
}
