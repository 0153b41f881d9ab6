package financego

import (
	"testing"

	finance "github.com/piquette/finance-go"
	"github.com/shopspring/decimal"

	"pricesource/internal/source"
)

func TestFromFinanceQuote(t *testing.T) {
	q, err := fromFinanceQuote("AAPL", &finance.Quote{RegularMarketPrice: 187.44, CurrencyID: "USD"})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !q.Price.Equal(decimal.NewFromFloat(187.44)) {
		t.Fatalf("unexpected price: %s", q.Price)
	}
	if q.Currency != "USD" {
		t.Fatalf("unexpected currency: %s", q.Currency)
	}
	if q.Time.IsZero() {
		t.Fatal("expected a present-moment timestamp")
	}
}

func TestFromFinanceQuote_DefaultsCurrency(t *testing.T) {
	q, err := fromFinanceQuote("AAPL", &finance.Quote{RegularMarketPrice: 10})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if q.Currency != "USD" {
		t.Fatalf("unexpected currency: %s", q.Currency)
	}
}

func TestFromFinanceQuote_NilQuote(t *testing.T) {
	_, err := fromFinanceQuote("AAPL", nil)
	if !source.IsKind(err, source.KindSemantic) {
		t.Fatalf("expected semantic kind, got %v", err)
	}
}

func TestFromFinanceQuote_ZeroPrice(t *testing.T) {
	_, err := fromFinanceQuote("AAPL", &finance.Quote{RegularMarketPrice: 0, CurrencyID: "USD"})
	if !source.IsKind(err, source.KindSemantic) {
		t.Fatalf("expected semantic kind, got %v", err)
	}
}
