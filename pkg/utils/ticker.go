package utils

import (
	"strings"
)

// Common company-name aliases users type instead of the listed symbol.
var tickerAliases = map[string]string{
	"APPLE":     "AAPL",
	"MICROSOFT": "MSFT",
	"GOOGLE":    "GOOGL",
	"ALPHABET":  "GOOGL",
	"AMAZON":    "AMZN",
	"NVIDIA":    "NVDA",
	"TESLA":     "TSLA",
	"META":      "META",
	"FACEBOOK":  "META",
	"NETFLIX":   "NFLX",
	"BERKSHIRE": "BRK-B",
}

// Index symbols as Yahoo Finance spells them.
var indexTickers = map[string]string{
	"SPX":    "^GSPC",
	"S&P500": "^GSPC",
	"SP500":  "^GSPC",
	"DJI":    "^DJI",
	"DOW":    "^DJI",
	"NASDAQ": "^IXIC",
	"IXIC":   "^IXIC",
	"VIX":    "^VIX",
}

// NormalizeTicker normalizes a user-input ticker to the canonical symbol.
// It handles aliases, uppercasing, whitespace and share-class dots.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))

	// Remove $ prefix if present (common in chat)
	ticker = strings.TrimPrefix(ticker, "$")

	if idx, ok := indexTickers[ticker]; ok {
		return idx
	}
	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}

	// Yahoo uses a dash for share classes: BRK.B → BRK-B.
	if i := strings.IndexByte(ticker, '.'); i > 0 && len(ticker)-i == 2 {
		ticker = ticker[:i] + "-" + ticker[i+1:]
	}
	return ticker
}
