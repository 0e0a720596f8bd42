package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seenimoa/alphapredict/internal/infra"
	"github.com/seenimoa/alphapredict/pkg/models"
)

// quoteSummaryModules are the info-bag sections requested per lookup.
var quoteSummaryModules = []string{"price", "summaryProfile", "summaryDetail", "assetProfile", "financialData"}

// --- Yahoo Finance API types ---

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yfQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]map[string]any `json:"result"`
		Error  *yfError                    `json:"error"`
	} `json:"quoteSummary"`
}

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	ExchangeName       string  `json:"exchangeName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type yfIndicators struct {
	Quote []yfOHLCV `json:"quote"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// --- requests ---

func (f *Fetcher) fetchInfo(ctx context.Context, symbol string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		f.baseURL, url.PathEscape(symbol), strings.Join(quoteSummaryModules, ","))

	var resp yfQuoteSummaryResponse
	if err := f.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, unavailable(symbol, "quote summary", err)
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return nil, &DataUnavailableError{Symbol: symbol, Reason: e.Description, NotFound: e.Code == "Not Found"}
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, &DataUnavailableError{Symbol: symbol, Reason: "no quote summary", NotFound: true}
	}
	return flattenModules(resp.QuoteSummary.Result[0]), nil
}

func (f *Fetcher) fetchBars(ctx context.Context, symbol string) (*models.PriceSeries, yfChartMeta, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1m",
		f.baseURL, url.PathEscape(symbol))

	var resp yfChartResponse
	if err := f.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, yfChartMeta{}, unavailable(symbol, "chart", err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, yfChartMeta{}, &DataUnavailableError{Symbol: symbol, Reason: e.Description, NotFound: e.Code == "Not Found"}
	}
	if len(resp.Chart.Result) == 0 {
		return nil, yfChartMeta{}, &DataUnavailableError{Symbol: symbol, Reason: "no chart data", NotFound: true}
	}

	result := resp.Chart.Result[0]
	series := &models.PriceSeries{
		Symbol:   models.TickerSymbol(symbol),
		Interval: "1m",
		Bars:     parseBars(result),
	}
	series.SortBars()
	return series, result.Meta, nil
}

func unavailable(symbol, what string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	de := &DataUnavailableError{Symbol: symbol, Reason: what + " request failed", Err: err}
	var he *infra.HTTPError
	if errors.As(err, &he) && he.StatusCode == http.StatusNotFound {
		de.NotFound = true
	}
	return de
}

// --- helpers ---

// parseBars converts the column-oriented chart payload into bars, dropping
// minutes where every OHLC value is null.
func parseBars(result yfChartResult) []models.OHLCBar {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	q := result.Indicators.Quote[0]
	bars := make([]models.OHLCBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if o == nil && h == nil && l == nil && c == nil {
			continue
		}
		bar := models.OHLCBar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      coalesce(o, c, h, l),
			High:      coalesce(h, o, c, l),
			Low:       coalesce(l, o, c, h),
			Close:     coalesce(c, o, h, l),
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars
}

func at(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

// coalesce returns the first non-nil value. Partial bars borrow from
// their other prices.
func coalesce(vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}

// flattenModules merges quoteSummary modules into one bag, replacing
// {"raw":..,"fmt":..} wrappers with their raw value. Earlier modules win.
func flattenModules(result map[string]map[string]any) map[string]any {
	info := make(map[string]any)
	for _, mod := range quoteSummaryModules {
		fields, ok := result[mod]
		if !ok {
			continue
		}
		for k, v := range fields {
			if k == "maxAge" {
				continue
			}
			if _, exists := info[k]; exists {
				continue
			}
			if fv, ok := unwrapRaw(v); ok {
				info[k] = fv
			}
		}
	}
	return info
}

func unwrapRaw(v any) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, v != nil
	}
	if raw, ok := m["raw"]; ok {
		return raw, true
	}
	if len(m) == 0 {
		return nil, false
	}
	return m, true
}

