package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"pricesource/internal/source"
)

// chartResult is the slice of the v8 chart payload this adapter reads:
// parallel timestamp/close arrays plus the meta block carrying currency
// and timezone information.
type chartResult struct {
	Meta struct {
		Currency             string `json:"currency"`
		Market               string `json:"market"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		GmtOffset            *int64 `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*json.Number `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// priceSeries fetches the daily close series for [begin, end]. The
// returned series is not sorted.
func (s *Source) priceSeries(ctx context.Context, ticker string, begin, end time.Time) (source.PriceSeries, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(begin.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	params.Set("interval", "1d")

	status, body, err := s.get(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), params)
	if err != nil {
		return source.PriceSeries{}, &source.Error{Provider: providerName, Kind: source.KindNetwork, Ticker: ticker, Msg: "connection error fetching chart", Err: err}
	}
	raw, err := parseEnvelope(ticker, status, body)
	if err != nil {
		return source.PriceSeries{}, err
	}

	var result chartResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return source.PriceSeries{}, &source.Error{Provider: providerName, Kind: source.KindMalformed, Ticker: ticker, Msg: "decoding chart result", Err: err, Snippet: snippet(raw)}
	}

	// Chart timestamps carry no zone of their own; reconstruct the
	// market's zone from the meta block, falling back to UTC.
	zone := time.UTC
	if result.Meta.GmtOffset != nil {
		zone = time.FixedZone(result.Meta.ExchangeTimezoneName, int(*result.Meta.GmtOffset))
	}

	if len(result.Timestamp) == 0 {
		return source.PriceSeries{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: fmt.Sprintf("no data for range %s - %s", begin.Format("2006-01-02"), end.Format("2006-01-02"))}
	}
	if len(result.Indicators.Quote) == 0 {
		return source.PriceSeries{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "no quote indicators in chart"}
	}

	closes := result.Indicators.Quote[0].Close
	points := make([]source.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			// Null closes are market holidays or gaps; drop them.
			continue
		}
		price, err := decimal.NewFromString(closes[i].String())
		if err != nil {
			return source.PriceSeries{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "invalid close price", Err: err}
		}
		points = append(points, source.PricePoint{Time: time.Unix(ts, 0).In(zone), Price: price})
	}

	return source.PriceSeries{
		Points:   points,
		Currency: resolveCurrency(result.Meta.Market, result.Meta.Currency),
	}, nil
}
