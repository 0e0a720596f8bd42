package render

import (
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/alphapredict/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Candlestick Chart Tests
// ════════════════════════════════════════════════════════════════════

func testSeries() *models.PriceSeries {
	start := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC) // 09:30 ET
	bars := make([]models.OHLCBar, 0, 12)
	price := 190.0
	for i := 0; i < 12; i++ {
		open := price
		close := price + 0.25
		if i%3 == 0 {
			close = price - 0.4
		}
		bars = append(bars, models.OHLCBar{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      open,
			High:      max(open, close) + 0.1,
			Low:       min(open, close) - 0.1,
			Close:     close,
			Volume:    int64(1000 + i*100),
		})
		price = close
	}
	return &models.PriceSeries{Symbol: "AAPL", Interval: "1m", Bars: bars}
}

func TestCandlestickSVG(t *testing.T) {
	svg := CandlestickSVG(testSeries(), DefaultChartConfig())

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("output is not a complete SVG document")
	}
	if !strings.Contains(svg, "AAPL Intraday") {
		t.Error("default title should name the ticker")
	}
	if !strings.Contains(svg, "09:30") {
		t.Error("time axis should be labelled in Eastern Time")
	}
	if !strings.Contains(svg, "$190") {
		t.Error("price axis should be labelled in dollars")
	}
	if !strings.Contains(svg, ChartCaption) {
		t.Error("caption missing")
	}
	if !strings.Contains(svg, "V 1,000</title>") {
		t.Error("candle tooltip should carry the grouped volume")
	}
	if !strings.Contains(svg, "#26a69a") || !strings.Contains(svg, "#ef5350") {
		t.Error("expected both bullish and bearish candles")
	}
}

func TestCandlestickSVG_Empty(t *testing.T) {
	for _, s := range []*models.PriceSeries{nil, {Symbol: "AAPL"}} {
		svg := CandlestickSVG(s, ChartConfig{})
		if !strings.Contains(svg, "No data available") {
			t.Errorf("empty series should render placeholder, got %q", svg)
		}
	}
}

func TestCandlestickSVG_EscapesTitle(t *testing.T) {
	cfg := DefaultChartConfig()
	cfg.Title = `AT&T <"T">`
	svg := CandlestickSVG(testSeries(), cfg)
	if !strings.Contains(svg, "AT&amp;T &lt;&quot;T&quot;&gt;") {
		t.Error("title should be XML-escaped")
	}
}

func TestCandlestickSVG_FlatSeries(t *testing.T) {
	ts := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	s := &models.PriceSeries{Symbol: "FLAT", Bars: []models.OHLCBar{
		{Timestamp: ts, Open: 10, High: 10, Low: 10, Close: 10},
	}}
	svg := CandlestickSVG(s, ChartConfig{})
	if strings.Contains(svg, "NaN") || strings.Contains(svg, "Inf") {
		t.Error("flat series produced invalid coordinates")
	}
}

// ════════════════════════════════════════════════════════════════════
// Info Panel Tests
// ════════════════════════════════════════════════════════════════════

func TestInfoPanel(t *testing.T) {
	tests := []struct {
		name string
		snap *models.StockSnapshot
		want []string
	}{
		{
			"complete",
			&models.StockSnapshot{
				Symbol:            "AAPL",
				CompanyName:       null.StringFrom("Apple Inc."),
				ExchangeCode:      null.StringFrom("NMS"),
				CurrentPrice:      null.FloatFrom(189.845),
				FullTimeEmployees: null.IntFrom(164000),
			},
			[]string{"Apple Inc.", "NASDAQ", "$189.85", "164,000"},
		},
		{
			"missing price and employees",
			&models.StockSnapshot{
				Symbol:       "SPY",
				CompanyName:  null.StringFrom("SPDR S&P 500 ETF Trust"),
				ExchangeCode: null.StringFrom("PCX"),
			},
			[]string{"SPDR S&P 500 ETF Trust", "NYSE Arca", NotAvailable, NotAvailable},
		},
		{
			"unknown exchange passes through",
			&models.StockSnapshot{
				Symbol:       "XYZ",
				ExchangeCode: null.StringFrom("ZZZ"),
				CurrentPrice: null.FloatFrom(0),
			},
			[]string{"N/A", "ZZZ", NotAvailable, NotAvailable},
		},
	}

	labels := []string{"Name", "Index", "Current Price", "Full-time employees"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := InfoPanel(tt.snap)
			if len(fields) != len(labels) {
				t.Fatalf("got %d fields, want %d", len(fields), len(labels))
			}
			for i, f := range fields {
				if f.Label != labels[i] {
					t.Errorf("field %d label = %q, want %q", i, f.Label, labels[i])
				}
				if f.Value != tt.want[i] {
					t.Errorf("%s = %q, want %q", f.Label, f.Value, tt.want[i])
				}
			}
		})
	}
}

func TestInfoPanel_Nil(t *testing.T) {
	if InfoPanel(nil) != nil {
		t.Error("nil snapshot should yield no fields")
	}
	if FormatPrice(nil) != NotAvailable {
		t.Error("nil snapshot price should be Not Available")
	}
}

// ════════════════════════════════════════════════════════════════════
// Narrative Tests
// ════════════════════════════════════════════════════════════════════

func TestNarrative(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"plain", "Shares may drift higher.", []string{"Shares may drift higher."}},
		{
			"markdown",
			"## Summary\n\nAAPL looks **strong** into __Friday__.\n\n\n# Risks\nEarnings next week.",
			[]string{"Summary", "AAPL looks strong into Friday.", "Risks\nEarnings next week."},
		},
		{
			"html",
			"<p>Momentum is <b>positive</b> &amp; rising.</p><script>alert(1)</script>",
			[]string{"Momentum is positive & rising."},
		},
		{"crlf", "First.\r\n\r\nSecond.", []string{"First.", "Second."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Narrative(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Narrative(%q) = %q, want %q", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("paragraph %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
