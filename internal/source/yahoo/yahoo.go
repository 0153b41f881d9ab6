// Package yahoo fetches equity prices from Yahoo Finance.
//
// The v7 quote and v8 chart endpoints are, as far as anyone can tell,
// undocumented. Most of them want a session cookie and an anti-forgery
// token ("crumb"), both fetched once when the source is constructed.
// Each call walks an escalating fallback chain: the primary quote/chart
// endpoint, then the quoteSummary endpoint, then an optional external
// aggregator backend.
package yahoo

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pricesource/internal/httpx"
	"pricesource/internal/source"
)

const (
	providerName   = "yahoo"
	defaultBaseURL = "https://query1.finance.yahoo.com"
	cookieURL      = "https://finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/110.0"
	maxBodyBytes   = 1 << 20
)

// defaultParams decorate every query request.
var defaultParams = map[string]string{
	"lang":       "en-US",
	"corsDomain": "finance.yahoo.com",
	".tsrc":      "finance",
}

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=yahoo.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Aggregator is the optional last-resort backend of the fallback chain.
// It yields only a present-moment price, even for historical requests.
type Aggregator interface {
	Quote(ctx context.Context, ticker string) (source.Quote, error)
}

// Source is the Yahoo Finance price adapter. Session state (cookies in
// the HTTP client's jar plus the crumb) is established once at
// construction and read-only afterwards; the adapter does no internal
// locking, so callers sharing one instance across goroutines must
// serialize access themselves.
type Source struct {
	baseURL    string
	httpClient HTTPClient
	header     http.Header
	crumb      string
	crumbSet   bool
	aggregator Aggregator
	log        logrus.FieldLogger
}

// Option is a configuration option for the Yahoo source.
type Option func(*Source)

// WithBaseURL sets the base URL for the query API.
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

// WithAggregator wires the last-resort aggregator backend. Without it the
// third fallback strategy fails, naming the missing dependency.
func WithAggregator(a Aggregator) Option {
	return func(s *Source) {
		s.aggregator = a
	}
}

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Source) {
		s.log = log
	}
}

// WithCrumb sets the anti-forgery token directly and skips the session
// warm-up requests.
func WithCrumb(crumb string) Option {
	return func(s *Source) {
		s.crumb = crumb
		s.crumbSet = true
	}
}

// New creates a Yahoo source and primes its session. Construction always
// succeeds: cookie and crumb retrieval are best effort, and a source with
// an empty crumb still works for some endpoints.
func New(options ...Option) *Source {
	s := &Source{
		baseURL: defaultBaseURL,
		header:  http.Header{},
		log:     logrus.StandardLogger(),
	}
	for _, option := range options {
		option(s)
	}
	if s.httpClient == nil {
		c := httpx.NewWithCookies(httpx.DefaultTimeout)
		c.UserAgent = userAgent
		s.httpClient = c
	}
	if !s.crumbSet {
		s.warmUp()
	}
	return s
}

// warmUp primes the session cookies and fetches the crumb.
func (s *Source) warmUp() {
	ctx, cancel := context.WithTimeout(context.Background(), httpx.DefaultTimeout)
	defer cancel()

	if req, err := http.NewRequestWithContext(ctx, http.MethodGet, cookieURL, http.NoBody); err == nil {
		if res, err := s.httpClient.Do(req); err == nil {
			io.Copy(io.Discard, io.LimitReader(res.Body, maxBodyBytes))
			res.Body.Close()
		} else {
			s.log.WithError(err).Debug("yahoo: cookie warm-up failed")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/test/getcrumb", http.NoBody)
	if err != nil {
		return
	}
	res, err := s.httpClient.Do(req)
	if err != nil {
		s.log.WithError(err).Debug("yahoo: crumb fetch failed")
		return
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<10))
	if err != nil || res.StatusCode != http.StatusOK {
		return
	}
	s.crumb = strings.TrimSpace(string(body))
}

func (s *Source) Name() string { return providerName }

// strategy is one step of the escalating fallback chain.
type strategy struct {
	name string
	run  func(ctx context.Context) (source.Quote, error)
}

// runChain attempts each strategy in order. The first success wins. If
// every strategy fails the first error is surfaced; later errors are only
// recorded as diagnostics.
func (s *Source) runChain(ctx context.Context, ticker string, strategies []strategy) (source.Quote, error) {
	var firstErr error
	for _, st := range strategies {
		q, err := st.run(ctx)
		if err == nil {
			return q, nil
		}
		s.log.WithError(err).WithFields(logrus.Fields{
			"ticker":   ticker,
			"strategy": st.name,
		}).Debug("yahoo: fallback strategy failed")
		if firstErr == nil {
			firstErr = err
		}
	}
	return source.Quote{}, firstErr
}

// LatestPrice returns the current market price via the fallback chain.
func (s *Source) LatestPrice(ctx context.Context, ticker string) (source.Quote, error) {
	return s.runChain(ctx, ticker, []strategy{
		{name: "quote", run: func(ctx context.Context) (source.Quote, error) {
			return s.latestFromQuote(ctx, ticker)
		}},
		{name: "quoteSummary", run: func(ctx context.Context) (source.Quote, error) {
			return s.latestFromSummary(ctx, ticker)
		}},
		{name: "aggregator", run: func(ctx context.Context) (source.Quote, error) {
			return s.latestFromAggregator(ctx, ticker)
		}},
	})
}

// HistoricalPrice returns the last close strictly before at. When the
// chart endpoint fails entirely, the remaining strategies yield only a
// present-moment point: the timestamp then degrades to "now" instead of
// the requested instant.
func (s *Source) HistoricalPrice(ctx context.Context, ticker string, at time.Time) (source.Quote, error) {
	return s.runChain(ctx, ticker, []strategy{
		{name: "chart", run: func(ctx context.Context) (source.Quote, error) {
			return s.historicalFromChart(ctx, ticker, at)
		}},
		{name: "quoteSummary", run: func(ctx context.Context) (source.Quote, error) {
			return s.latestFromSummary(ctx, ticker)
		}},
		{name: "aggregator", run: func(ctx context.Context) (source.Quote, error) {
			return s.latestFromAggregator(ctx, ticker)
		}},
	})
}

func (s *Source) historicalFromChart(ctx context.Context, ticker string, at time.Time) (source.Quote, error) {
	series, err := s.priceSeries(ctx, ticker, at.AddDate(0, 0, -5), at)
	if err != nil {
		// Retry once over a wider window before giving up on the chart.
		wide, werr := s.priceSeries(ctx, ticker, at.AddDate(0, 0, -30), at)
		if werr != nil {
			return source.Quote{}, err
		}
		series = wide
	}
	series.Sort()
	pt, ok := series.LastBefore(at)
	if !ok {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "no price before " + at.Format(time.RFC3339) + " in series"}
	}
	return source.Quote{Price: pt.Price, Time: pt.Time, Currency: series.Currency}, nil
}

// DailyPrices returns one quote per trading day in [begin, end]. Null
// closes (market holidays and gaps) are dropped, not interpolated.
func (s *Source) DailyPrices(ctx context.Context, ticker string, begin, end time.Time) ([]source.Quote, error) {
	series, err := s.priceSeries(ctx, ticker, begin, end)
	if err != nil {
		return nil, err
	}
	quotes := make([]source.Quote, 0, len(series.Points))
	for _, p := range series.Points {
		quotes = append(quotes, source.Quote{Price: p.Price, Time: p.Time, Currency: series.Currency})
	}
	return quotes, nil
}

func (s *Source) latestFromAggregator(ctx context.Context, ticker string) (source.Quote, error) {
	if s.aggregator == nil {
		return source.Quote{}, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "aggregator fallback unavailable: github.com/piquette/finance-go backend not configured"}
	}
	return s.aggregator.Quote(ctx, ticker)
}

// get performs one GET against the query API with the default params merged in.
func (s *Source) get(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	query := url.Values{}
	for k, v := range defaultParams {
		query.Set(k, v)
	}
	for k, values := range params {
		for _, v := range values {
			query.Add(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return 0, nil, err
	}
	for key, values := range s.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}
	return res.StatusCode, body, nil
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
