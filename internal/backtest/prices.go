package backtest

import (
	"sort"
	"time"

	"github.com/brandonnmartinsj/TradingAgents/internal/dataflows"
)

const dateLayout = "2006-01-02"

type pricePoint struct {
	day   time.Time
	close float64
}

// PriceSeries is a daily closing price series ordered by date.
type PriceSeries struct {
	points []pricePoint
}

// NewPriceSeries builds a series from ISO date → close. Unparseable dates are ignored.
func NewPriceSeries(closes map[string]float64) *PriceSeries {
	ps := &PriceSeries{points: make([]pricePoint, 0, len(closes))}
	for date, c := range closes {
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			continue
		}
		ps.points = append(ps.points, pricePoint{day: d, close: c})
	}
	ps.sort()
	return ps
}

// PriceSeriesFromBars uses the close of each bar. A later bar for the same day wins.
func PriceSeriesFromBars(bars []dataflows.Bar) *PriceSeries {
	byDay := make(map[string]float64, len(bars))
	for _, b := range bars {
		byDay[b.Day()] = b.Close.InexactFloat64()
	}
	return NewPriceSeries(byDay)
}

func (ps *PriceSeries) sort() {
	sort.Slice(ps.points, func(i, j int) bool { return ps.points[i].day.Before(ps.points[j].day) })
}

func (ps *PriceSeries) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.points)
}

// Resolve returns the close on date, or the close of the nearest trading day
// when date itself has none. Equidistant days resolve to the later one.
func (ps *PriceSeries) Resolve(date string) (float64, bool) {
	if ps.Len() == 0 {
		return 0, false
	}
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0, false
	}

	i := sort.Search(len(ps.points), func(i int) bool { return !ps.points[i].day.Before(d) })
	if i < len(ps.points) && ps.points[i].day.Equal(d) {
		return ps.points[i].close, true
	}
	switch {
	case i == 0:
		return ps.points[0].close, true
	case i == len(ps.points):
		return ps.points[i-1].close, true
	}
	before, after := ps.points[i-1], ps.points[i]
	if after.day.Sub(d) <= d.Sub(before.day) {
		return after.close, true
	}
	return before.close, true
}

// Last returns the most recent close.
func (ps *PriceSeries) Last() (float64, bool) {
	if ps.Len() == 0 {
		return 0, false
	}
	return ps.points[len(ps.points)-1].close, true
}
