package yahoo

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"pricesource/internal/source"
)

// quoteResult is the slice of the v7 quote payload this adapter reads.
type quoteResult struct {
	Symbol                string       `json:"symbol"`
	RegularMarketPrice    *json.Number `json:"regularMarketPrice"`
	RegularMarketTime     *int64       `json:"regularMarketTime"`
	GmtOffsetMilliseconds *int64       `json:"gmtOffSetMilliseconds"`
	ExchangeTimezoneName  string       `json:"exchangeTimezoneName"`
	Market                string       `json:"market"`
	Currency              string       `json:"currency"`
}

// latestFromQuote is the primary latest-price strategy, hitting the v7
// quote endpoint with the session crumb.
func (s *Source) latestFromQuote(ctx context.Context, ticker string) (source.Quote, error) {
	params := url.Values{}
	params.Set("symbols", ticker)
	params.Set("fields", "symbol,regularMarketPrice,regularMarketTime")
	params.Set("exchange", "NYSE")
	params.Set("crumb", s.crumb)

	status, body, err := s.get(ctx, "/v7/finance/quote", params)
	if err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindNetwork, Ticker: ticker, Msg: "connection error fetching quote", Err: err}
	}
	raw, err := parseEnvelope(ticker, status, body)
	if err != nil {
		return source.Quote{}, err
	}

	var result quoteResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindMalformed, Ticker: ticker, Msg: "decoding quote result", Err: err, Snippet: snippet(raw)}
	}
	if result.RegularMarketPrice == nil || result.RegularMarketTime == nil || result.GmtOffsetMilliseconds == nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "missing market price, time or offset", Snippet: snippet(raw)}
	}
	price, err := decimal.NewFromString(result.RegularMarketPrice.String())
	if err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "invalid market price", Err: err, Snippet: snippet(raw)}
	}

	// The market's own timezone, reconstructed as a fixed-offset zone.
	zone := time.FixedZone(result.ExchangeTimezoneName, int(*result.GmtOffsetMilliseconds/1000))
	tradeTime := time.Unix(*result.RegularMarketTime, 0).In(zone)

	return source.Quote{
		Price:    price,
		Time:     tradeTime,
		Currency: resolveCurrency(result.Market, result.Currency),
	}, nil
}
