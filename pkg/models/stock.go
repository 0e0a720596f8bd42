// Package models defines the core data structures used throughout AlphaPredict.
package models

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// ErrEmptyTicker is returned when a lookup is attempted with a blank symbol.
var ErrEmptyTicker = errors.New("ticker symbol is empty")

// TickerSymbol is a short uppercase string identifying a tradable instrument.
// Validity beyond non-emptiness is decided by the market-data provider.
type TickerSymbol string

// ParseTicker trims and upper-cases s. It only rejects empty input.
func ParseTicker(s string) (TickerSymbol, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", ErrEmptyTicker
	}
	return TickerSymbol(s), nil
}

func (t TickerSymbol) String() string { return string(t) }

// StockSnapshot is the descriptive record fetched for a ticker on every lookup.
// It is never cached and is discarded once the request completes.
type StockSnapshot struct {
	Symbol            TickerSymbol   `json:"symbol"`
	CompanyName       null.String    `json:"company_name"`
	ExchangeCode      null.String    `json:"exchange_code"`
	CurrentPrice      null.Float     `json:"current_price"`
	FullTimeEmployees null.Int       `json:"full_time_employees"`
	Currency          string         `json:"currency,omitempty"`
	Info              map[string]any `json:"info,omitempty"` // passed verbatim to the prompt
	Headlines         []Headline     `json:"headlines,omitempty"`
	FetchedAt         time.Time      `json:"fetched_at"`
}

// Headline is a recent news item about the ticker.
type Headline struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// OHLCBar represents a single candlestick bar of price data.
type OHLCBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Bullish reports whether the bar closed at or above its open.
func (b OHLCBar) Bullish() bool { return b.Close >= b.Open }

// PriceSeries is the intraday bar series for the current trading day,
// ordered by timestamp ascending.
type PriceSeries struct {
	Symbol   TickerSymbol `json:"symbol"`
	Interval string       `json:"interval"` // e.g., "1m"
	Bars     []OHLCBar    `json:"bars"`
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// SortBars orders bars by timestamp ascending.
func (s *PriceSeries) SortBars() {
	sort.SliceStable(s.Bars, func(i, j int) bool {
		return s.Bars[i].Timestamp.Before(s.Bars[j].Timestamp)
	})
}

// Range returns the lowest low and highest high across all bars.
func (s *PriceSeries) Range() (low, high float64) {
	if s.Len() == 0 {
		return 0, 0
	}
	low, high = s.Bars[0].Low, s.Bars[0].High
	for _, b := range s.Bars[1:] {
		if b.Low < low {
			low = b.Low
		}
		if b.High > high {
			high = b.High
		}
	}
	return low, high
}

// Last returns the most recent bar.
func (s *PriceSeries) Last() (OHLCBar, bool) {
	if s.Len() == 0 {
		return OHLCBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
