// Package render turns fetched market data and model output into the pieces
// the dashboard page displays: an SVG candlestick chart, the info panel and
// the cleaned-up narrative.
package render

import (
	"fmt"
	"strings"

	"github.com/seenimoa/alphapredict/pkg/models"
	"github.com/seenimoa/alphapredict/pkg/utils"
)

// ChartCaption is shown under every chart.
const ChartCaption = "Charts in Eastern Time"

// ════════════════════════════════════════════════════════════════════
// SVG Chart Generator
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 800)
	Height       int    // SVG height in pixels (default: 400)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 60)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 80)
	BgColor      string // background color
	GridColor    string // grid line color
	TextColor    string // axis label color
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  60,
		MarginBottom: 50,
		MarginLeft:   80,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// ════════════════════════════════════════════════════════════════════
// Candlestick Chart
// ════════════════════════════════════════════════════════════════════

// CandlestickSVG renders the intraday series as an SVG candlestick chart
// with volume bars along the bottom. Price labels are in US dollars and
// time labels in US/Eastern.
func CandlestickSVG(series *models.PriceSeries, cfg ChartConfig) string {
	if series.Len() == 0 {
		return emptySVG(cfg, "No data available")
	}

	if cfg.Width == 0 {
		title := cfg.Title
		cfg = DefaultChartConfig()
		cfg.Title = title
	}
	if cfg.Title == "" {
		cfg.Title = series.Symbol.String() + " Intraday"
	}

	bars := series.Bars
	px, py, pw, ph := cfg.plotArea()

	minPrice, maxPrice := series.Range()
	priceRange := maxPrice - minPrice
	if priceRange < 0.01 {
		priceRange = 1
	}
	minPrice -= priceRange * 0.05
	maxPrice += priceRange * 0.05
	priceRange = maxPrice - minPrice

	var maxVol int64
	for _, b := range bars {
		if b.Volume > maxVol {
			maxVol = b.Volume
		}
	}

	n := len(bars)
	slot := float64(pw) / float64(n)
	bodyWidth := slot * 0.7
	if bodyWidth > 9 {
		bodyWidth = 9
	}
	volHeight := float64(ph) * 0.2 // bottom 20% for volume
	priceHeight := float64(ph) - volHeight

	centerX := func(i int) float64 {
		return float64(px) + float64(i)*slot + slot/2
	}
	priceToY := func(p float64) float64 {
		return float64(py) + priceHeight - (p-minPrice)/priceRange*priceHeight
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	fmt.Fprintf(&sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor)
	fmt.Fprintf(&sb, `<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title))

	// Y-axis grid lines and labels (price)
	gridLines := 6
	for i := 0; i <= gridLines; i++ {
		price := minPrice + priceRange*float64(i)/float64(gridLines)
		y := priceToY(price)
		fmt.Fprintf(&sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor)
		fmt.Fprintf(&sb, `<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, utils.FormatUSD(price))
	}

	if maxVol > 0 {
		for i, b := range bars {
			vh := float64(b.Volume) / float64(maxVol) * volHeight
			color := "#c8e6c9"
			if !b.Bullish() {
				color = "#ffcdd2"
			}
			fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" opacity="0.6"/>`,
				centerX(i)-bodyWidth/2, float64(py+ph)-vh, bodyWidth, vh, color)
		}
	}

	for i, b := range bars {
		cx := centerX(i)
		color := "#26a69a"
		if !b.Bullish() {
			color = "#ef5350"
		}

		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>`,
			cx, priceToY(b.High), cx, priceToY(b.Low), color)

		top, bottom := priceToY(b.Open), priceToY(b.Close)
		if top > bottom {
			top, bottom = bottom, top
		}
		bodyH := bottom - top
		if bodyH < 1 {
			bodyH = 1
		}
		fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"><title>%s O %s H %s L %s C %s V %s</title></rect>`,
			cx-bodyWidth/2, top, bodyWidth, bodyH, color,
			utils.FormatClockEastern(b.Timestamp),
			utils.FormatUSD(b.Open), utils.FormatUSD(b.High), utils.FormatUSD(b.Low), utils.FormatUSD(b.Close),
			utils.FormatCount(b.Volume))
	}

	// X-axis time labels
	labelInterval := n / 6
	if labelInterval < 1 {
		labelInterval = 1
	}
	for i := 0; i < n; i += labelInterval {
		cx := centerX(i)
		fmt.Fprintf(&sb, `<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			cx, py+ph+16, cfg.FontSize-1, cfg.TextColor, utils.FormatClockEastern(bars[i].Timestamp))
	}

	fmt.Fprintf(&sb, `<text x="%d" y="%d" font-size="%d" fill="#888" text-anchor="end">%s</text>`,
		px+pw, cfg.Height-8, cfg.FontSize-1, ChartCaption)

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
