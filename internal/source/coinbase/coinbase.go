// Package coinbase fetches cryptocurrency spot prices from the Coinbase API.
//
// Valid tickers are in the form "BASE-QUOTE", such as "BTC-USD". Historical
// lookups use the spot endpoint's date parameter, which has day granularity.
package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pricesource/internal/httpx"
	"pricesource/internal/source"
)

const (
	providerName   = "coinbase"
	defaultBaseURL = "https://api.coinbase.com"
	maxBodyBytes   = 1 << 20
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coinbase_test -destination=mock_http_client_test.go -source=coinbase.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source is the Coinbase price adapter.
type Source struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
}

// Option is a configuration option for the Coinbase source.
type Option func(*Source)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(s *Source) {
		s.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(s *Source) {
		s.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(s *Source) {
		for key, values := range header {
			for _, value := range values {
				s.header.Add(key, value)
			}
		}
	}
}

// New creates a Coinbase source.
func New(options ...Option) *Source {
	s := &Source{
		baseURL: defaultBaseURL,
		header:  http.Header{},
	}
	for _, option := range options {
		option(s)
	}
	if s.httpClient == nil {
		s.httpClient = httpx.New(httpx.DefaultTimeout)
	}
	return s
}

func (s *Source) Name() string { return providerName }

// LatestPrice returns the current spot price. The endpoint supplies no
// timestamp for spot prices, so the quote carries the current UTC instant.
func (s *Source) LatestPrice(ctx context.Context, ticker string) (source.Quote, error) {
	return s.fetchQuote(ctx, ticker, time.Time{})
}

// HistoricalPrice returns the spot price for the UTC date containing at.
// The endpoint has day granularity, so the lookup is approximate to the day.
func (s *Source) HistoricalPrice(ctx context.Context, ticker string, at time.Time) (source.Quote, error) {
	return s.fetchQuote(ctx, ticker, at)
}

func (s *Source) fetchQuote(ctx context.Context, ticker string, at time.Time) (source.Quote, error) {
	url := fmt.Sprintf("%s/v2/prices/%s/spot", s.baseURL, strings.ToLower(ticker))
	if !at.IsZero() {
		url += "?date=" + at.UTC().Format("2006-01-02")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindNetwork, Ticker: ticker, Msg: "creating request", Err: err}
	}
	for key, values := range s.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindNetwork, Ticker: ticker, Msg: "performing request", Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindNetwork, Ticker: ticker, Msg: "reading response", Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindNetwork, Ticker: ticker, Msg: fmt.Sprintf("unexpected status code: %d", res.StatusCode), Snippet: snippet(body)}
	}

	var sr spotResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindMalformed, Ticker: ticker, Msg: "decoding spot response", Err: err, Snippet: snippet(body)}
	}

	data, err := s.resolveData(ticker, sr.Data)
	if err != nil {
		return source.Quote{}, err
	}
	if data.Amount == nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "missing amount in response", Snippet: snippet(body)}
	}
	price, err := decimal.NewFromString(strings.TrimSpace(*data.Amount))
	if err != nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: fmt.Sprintf("invalid amount %q", *data.Amount), Err: err}
	}

	currency := data.Currency
	if currency == "" {
		// Degraded match without a currency; fall back to the quote leg.
		if _, quote, terr := splitTicker(ticker); terr == nil {
			currency = strings.ToUpper(quote)
		} else {
			currency = "USD"
		}
	}

	ts := at
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return source.Quote{Price: price, Time: ts, Currency: currency}, nil
}

// spotResponse is the envelope of the spot endpoint.
type spotResponse struct {
	Data spotPayload `json:"data"`
}

// spotPayload is the polymorphic data field: either a single quote object
// or a list of candidate trading-pair matches. Decoded as an explicit
// tagged union so the matching logic can dispatch on the shape.
type spotPayload struct {
	Single *spotData
	List   []spotData
}

func (p *spotPayload) UnmarshalJSON(b []byte) error {
	switch firstByte(b) {
	case '[':
		p.Single = nil
		return json.Unmarshal(b, &p.List)
	case 'n': // null
		p.Single, p.List = nil, nil
		return nil
	default:
		p.List = nil
		p.Single = new(spotData)
		return json.Unmarshal(b, p.Single)
	}
}

func firstByte(b []byte) byte {
	trimmed := bytes.TrimLeft(b, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

type spotData struct {
	Amount   *string `json:"amount"`
	Base     string  `json:"base"`
	Currency string  `json:"currency"`
}

// resolveData picks the authoritative entry out of the payload. For list
// payloads the resolution order is: exact base+quote match, then first
// quote-currency match, then first entry regardless of currency.
func (s *Source) resolveData(ticker string, payload spotPayload) (spotData, error) {
	if payload.Single != nil {
		d := *payload.Single
		if d.Amount == nil || d.Currency == "" {
			return spotData{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "missing amount or currency in response"}
		}
		return d, nil
	}
	if payload.List == nil {
		return spotData{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "missing data field in response"}
	}

	base, quote, err := splitTicker(ticker)
	if err != nil {
		return spotData{}, err
	}
	for _, d := range payload.List {
		if strings.EqualFold(d.Base, base) && strings.EqualFold(d.Currency, quote) {
			return d, nil
		}
	}
	for _, d := range payload.List {
		if strings.EqualFold(d.Currency, quote) {
			return d, nil
		}
	}
	if len(payload.List) > 0 {
		// Last resort: first entry, regardless of currency.
		return payload.List[0], nil
	}
	return spotData{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "no price data found in response"}
}

func splitTicker(ticker string) (base, quote string, err error) {
	parts := strings.SplitN(ticker, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "invalid ticker format, expected BASE-QUOTE"}
	}
	return parts[0], parts[1], nil
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
