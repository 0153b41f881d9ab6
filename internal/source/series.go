package source

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one timestamped close price inside a series.
type PricePoint struct {
	Time  time.Time
	Price decimal.Decimal
}

// PriceSeries is a historical window of prices in a single currency.
// Points are not necessarily sorted on arrival; call Sort before any
// range query.
type PriceSeries struct {
	Points   []PricePoint
	Currency string
}

// Sort orders the points ascending by timestamp.
func (s *PriceSeries) Sort() {
	sort.Slice(s.Points, func(i, j int) bool {
		return s.Points[i].Time.Before(s.Points[j].Time)
	})
}

// LastBefore returns the latest point strictly before at. The series must
// already be sorted ascending.
func (s PriceSeries) LastBefore(at time.Time) (PricePoint, bool) {
	var (
		latest PricePoint
		found  bool
	)
	for _, p := range s.Points {
		if !p.Time.Before(at) {
			break
		}
		latest, found = p, true
	}
	return latest, found
}
