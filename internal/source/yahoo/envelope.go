package yahoo

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"pricesource/internal/source"
)

// envelope is the {error, result: [...]} body both query endpoints wrap
// their payload in, under a single endpoint-specific top-level key.
type envelope struct {
	Result []json.RawMessage `json:"result"`
	Error  json.RawMessage   `json:"error"`
}

// parseEnvelope validates the response envelope and returns the first
// result object.
func parseEnvelope(ticker string, status int, body []byte) (json.RawMessage, error) {
	if status < 200 || status >= 300 {
		return nil, &source.Error{Provider: providerName, Kind: source.KindNetwork, Ticker: ticker, Msg: fmt.Sprintf("unexpected status code: %d", status), Snippet: snippet(body)}
	}
	var outer map[string]envelope
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, &source.Error{Provider: providerName, Kind: source.KindMalformed, Ticker: ticker, Msg: "decoding response envelope", Err: err, Snippet: snippet(body)}
	}
	if len(outer) != 1 {
		keys := make([]string, 0, len(outer))
		for k := range outer {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, &source.Error{Provider: providerName, Kind: source.KindMalformed, Ticker: ticker, Msg: fmt.Sprintf("expected a single envelope key, got [%s]", strings.Join(keys, ","))}
	}
	var content envelope
	for _, v := range outer {
		content = v
	}
	if len(content.Error) > 0 && string(content.Error) != "null" {
		return nil, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "provider signalled an error", Snippet: snippet(content.Error)}
	}
	if len(content.Result) == 0 {
		return nil, &source.Error{Provider: providerName, Kind: source.KindSemantic, Ticker: ticker, Msg: "empty result, ensure the symbol is correct"}
	}
	return content.Result[0], nil
}

// marketCurrencies maps known Yahoo market identifiers to currency codes.
var marketCurrencies = map[string]string{
	"us_market": "USD",
	"ca_market": "CAD",
	"ch_market": "CHF",
}

// resolveCurrency picks a currency code: known market identifier first,
// then the explicit currency field, then USD.
func resolveCurrency(market, currency string) string {
	if c, ok := marketCurrencies[market]; ok {
		return c
	}
	if currency != "" {
		return currency
	}
	return "USD"
}
