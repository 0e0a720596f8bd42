// Package marketdata fetches the per-lookup stock snapshot and intraday
// price series from Yahoo Finance.
package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/guregu/null/v6"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/alphapredict/internal/config"
	"github.com/seenimoa/alphapredict/internal/infra"
	"github.com/seenimoa/alphapredict/pkg/models"
	"github.com/seenimoa/alphapredict/pkg/utils"
)

// Source is what the dashboard needs from market data.
type Source interface {
	Fetch(ctx context.Context, symbol models.TickerSymbol) (*models.StockSnapshot, *models.PriceSeries, error)
}

// DefaultHeadlinesTimeout bounds the optional headline fetch.
const DefaultHeadlinesTimeout = 3 * time.Second

// Fetcher implements Source against Yahoo Finance. Nothing is cached.
type Fetcher struct {
	client           *infra.Client
	parser           *gofeed.Parser
	baseURL          string
	headlinesURL     string
	maxHeadlines     int
	headlinesTimeout time.Duration
	logger           *zap.Logger
	now              func() time.Time
}

// NewFetcher builds a fetcher from config.
func NewFetcher(cfg config.MarketDataConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := infra.NewClient(time.Duration(cfg.TimeoutSec) * time.Second)
	client.Limiter = infra.PerSecond(cfg.RatePerSecond)

	parser := gofeed.NewParser()
	parser.Client = client.HTTP
	parser.UserAgent = infra.DefaultUserAgent

	headlinesTimeout := time.Duration(cfg.HeadlinesTimeoutMs) * time.Millisecond
	if headlinesTimeout <= 0 {
		headlinesTimeout = DefaultHeadlinesTimeout
	}

	return &Fetcher{
		client:           client,
		parser:           parser,
		baseURL:          cfg.BaseURL,
		headlinesURL:     cfg.HeadlinesURL,
		maxHeadlines:     cfg.MaxHeadlines,
		headlinesTimeout: headlinesTimeout,
		logger:           logger,
		now:              time.Now,
	}
}

// Fetch retrieves the info bag and the current day's one-minute bars
// concurrently. Either failing fails the lookup. Headlines are best effort
// and get at most headlinesTimeout; a slow feed never holds up the lookup
// longer than that.
func (f *Fetcher) Fetch(ctx context.Context, symbol models.TickerSymbol) (*models.StockSnapshot, *models.PriceSeries, error) {
	sym := utils.NormalizeTicker(symbol.String())
	if sym == "" {
		return nil, nil, &DataUnavailableError{Symbol: symbol.String(), Reason: models.ErrEmptyTicker.Error(), NotFound: true}
	}
	log := f.logger.With(zap.String("symbol", sym))
	start := f.now()

	hctx, cancelHeadlines := context.WithTimeout(ctx, f.headlinesTimeout)
	defer cancelHeadlines()
	headc := make(chan []models.Headline, 1)
	go func() {
		h, err := f.fetchHeadlines(hctx, sym)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Debug("headlines unavailable", zap.Error(err))
		}
		headc <- h
	}()

	var (
		info   map[string]any
		series *models.PriceSeries
		meta   yfChartMeta
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = f.fetchInfo(gctx, sym)
		return err
	})
	g.Go(func() error {
		var err error
		series, meta, err = f.fetchBars(gctx, sym)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn("market data fetch failed", zap.Error(err))
		return nil, nil, err
	}

	var headlines []models.Headline
	select {
	case headlines = <-headc:
	default:
		select {
		case headlines = <-headc:
		case <-hctx.Done():
			log.Debug("headlines skipped", zap.Duration("timeout", f.headlinesTimeout))
		}
	}

	snap := buildSnapshot(sym, info, meta)
	snap.Headlines = headlines
	snap.FetchedAt = f.now().UTC()

	log.Debug("market data fetched",
		zap.Int("bars", series.Len()),
		zap.Int("headlines", len(headlines)),
		zap.Duration("took", f.now().Sub(start)))
	return snap, series, nil
}

func buildSnapshot(sym string, info map[string]any, meta yfChartMeta) *models.StockSnapshot {
	snap := &models.StockSnapshot{
		Symbol:   models.TickerSymbol(sym),
		Currency: meta.Currency,
		Info:     info,
	}
	if name := stringField(info, "longName", "shortName"); name != "" {
		snap.CompanyName = null.StringFrom(name)
	}
	if code := stringField(info, "exchange"); code != "" {
		snap.ExchangeCode = null.StringFrom(code)
	} else if meta.ExchangeName != "" {
		snap.ExchangeCode = null.StringFrom(meta.ExchangeName)
	}
	if p, ok := numberField(info, "currentPrice"); ok && p > 0 {
		snap.CurrentPrice = null.FloatFrom(p)
	}
	if n, ok := numberField(info, "fullTimeEmployees"); ok {
		snap.FullTimeEmployees = null.IntFrom(int64(n))
	}
	if snap.Currency == "" {
		snap.Currency = stringField(info, "currency")
	}
	return snap
}

func stringField(info map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := info[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func numberField(info map[string]any, key string) (float64, bool) {
	switch v := info[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
