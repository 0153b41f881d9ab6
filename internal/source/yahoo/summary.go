package yahoo

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"pricesource/internal/source"
)

// summaryResult is the slice of the quoteSummary payload this adapter
// reads. Numeric fields arrive as {raw, fmt} pairs.
type summaryResult struct {
	Price *struct {
		RegularMarketPrice *struct {
			Raw json.Number `json:"raw"`
		} `json:"regularMarketPrice"`
		Currency string `json:"currency"`
	} `json:"price"`
}

// latestFromSummary is the alternative-API strategy, hitting the
// quoteSummary endpoint. It only ever yields a present-moment data point,
// and treats a price of exactly zero as missing data rather than a real
// market price.
func (s *Source) latestFromSummary(ctx context.Context, ticker string) (source.Quote, error) {
	params := url.Values{}
	params.Set("modules", "price,summaryDetail")
	params.Set("crumb", s.crumb)

	status, body, err := s.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(ticker), params)
	if err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindNetwork, Ticker: ticker, Msg: "connection error fetching quote summary", Err: err}
	}
	raw, err := parseEnvelope(ticker, status, body)
	if err != nil {
		return source.Quote{}, err
	}

	var result summaryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindMalformed, Ticker: ticker, Msg: "decoding quote summary result", Err: err, Snippet: snippet(raw)}
	}
	if result.Price == nil || result.Price.RegularMarketPrice == nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "missing price module in quote summary", Snippet: snippet(raw)}
	}
	price, err := decimal.NewFromString(result.Price.RegularMarketPrice.Raw.String())
	if err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "invalid market price in quote summary", Err: err, Snippet: snippet(raw)}
	}
	if price.IsZero() {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "zero price in quote summary"}
	}

	return source.Quote{
		Price:    price,
		Time:     time.Now().UTC(),
		Currency: resolveCurrency("", result.Price.Currency),
	}, nil
}
