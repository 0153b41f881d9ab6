// Package source defines the capability contract shared by all price
// provider adapters and the normalized records they return.
package source

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the normalized record produced by every adapter: an
// arbitrary-precision price, a timezone-aware timestamp and an ISO-like
// currency code. Immutable once constructed.
type Quote struct {
	Price    decimal.Decimal
	Time     time.Time
	Currency string
}

// Source is the contract every provider adapter satisfies. Tickers are
// opaque provider-specific strings ("BTC-USD" for crypto pairs, plain
// symbols for equities) and are not validated beyond minimal shape checks.
type Source interface {
	Name() string
	LatestPrice(ctx context.Context, ticker string) (Quote, error)
	HistoricalPrice(ctx context.Context, ticker string, at time.Time) (Quote, error)
}

// SeriesSource is implemented by adapters that can additionally serve a
// daily close-price series over a time window.
type SeriesSource interface {
	Source
	DailyPrices(ctx context.Context, ticker string, begin, end time.Time) ([]Quote, error)
}

// DailyPrices dispatches the optional daily-series capability, failing
// with an unsupported-kind error for sources that do not provide it.
func DailyPrices(ctx context.Context, s Source, ticker string, begin, end time.Time) ([]Quote, error) {
	ss, ok := s.(SeriesSource)
	if !ok {
		return nil, &Error{Provider: s.Name(), Kind: KindUnsupported, Ticker: ticker, Msg: "daily price series not supported"}
	}
	return ss.DailyPrices(ctx, ticker, begin, end)
}
