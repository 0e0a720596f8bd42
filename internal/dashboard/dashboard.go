// Package dashboard runs one lookup end to end: ticker → market data →
// entitlement → insight → page model. It is the only place the steps are
// sequenced; the HTTP server and CLI both call into it.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/alphapredict/internal/auth"
	"github.com/seenimoa/alphapredict/internal/config"
	"github.com/seenimoa/alphapredict/internal/entitlement"
	"github.com/seenimoa/alphapredict/internal/insight"
	"github.com/seenimoa/alphapredict/internal/marketdata"
	"github.com/seenimoa/alphapredict/internal/render"
	"github.com/seenimoa/alphapredict/pkg/models"
)

// ErrSuperseded is returned when a newer refresh for the same session
// started before this one finished. Its result must not be shown.
var ErrSuperseded = errors.New("refresh superseded by a newer request")

// UpgradeNotice replaces the insight for sessions without a paid plan.
const UpgradeNotice = "AI insights are available on paid plans. Upgrade your subscription to unlock predictions."

// InsightGenerator produces the narrative for a snapshot.
type InsightGenerator interface {
	Generate(ctx context.Context, snap *models.StockSnapshot, target insight.Target) (string, error)
}

// Page is everything the dashboard view renders for one lookup.
type Page struct {
	Ticker          models.TickerSymbol      `json:"ticker"`
	Mode            string                   `json:"mode"`
	Snapshot        *models.StockSnapshot    `json:"snapshot"`
	Series          *models.PriceSeries      `json:"series"`
	Fields          []render.Field           `json:"fields"`
	ChartSVG        string                   `json:"-"`
	Entitlement     *entitlement.Entitlement `json:"entitlement,omitempty"`
	Insight         []string                 `json:"insight,omitempty"`
	InsightError    string                   `json:"insight_error,omitempty"`
	UpgradeRequired bool                     `json:"upgrade_required,omitempty"`
	Caption         string                   `json:"caption"`
	Footer          string                   `json:"footer"`
	GeneratedAt     time.Time                `json:"generated_at"`
}

// Options configures an Orchestrator.
type Options struct {
	Mode      string         // config.ModeCommunity or config.ModeSubscription
	Community insight.Target // model used in community mode
	Chart     render.ChartConfig
	Logger    *zap.Logger
}

// Orchestrator sequences a lookup. It holds no per-request state.
type Orchestrator struct {
	market   marketdata.Source
	resolver *entitlement.Resolver
	insights InsightGenerator
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// New returns an orchestrator. resolver may be nil in community mode.
func New(market marketdata.Source, resolver *entitlement.Resolver, insights InsightGenerator, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = config.ModeCommunity
	}
	if opts.Chart.Width == 0 {
		opts.Chart = render.DefaultChartConfig()
	}
	if resolver == nil {
		resolver = entitlement.NewResolver(nil)
	}
	return &Orchestrator{
		market:   market,
		resolver: resolver,
		insights: insights,
		opts:     opts,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Mode returns the configured application mode.
func (o *Orchestrator) Mode() string { return o.opts.Mode }

func (o *Orchestrator) subscription() bool { return o.opts.Mode == config.ModeSubscription }

// Refresh performs one lookup for sess. Any earlier refresh still running for
// the same session is cancelled and its result discarded.
//
// Fatal errors: empty ticker, missing authentication in subscription mode,
// market data unavailable, entitlement misconfiguration. A missing paid plan
// or a failed insight call still yields a page with chart and info panel.
func (o *Orchestrator) Refresh(ctx context.Context, sess *auth.UserSession, rawTicker string) (*Page, error) {
	return o.RefreshWithProgress(ctx, sess, rawTicker, nil)
}

// RefreshWithProgress is Refresh with a hook called once market data is in,
// before the model is asked. The hook sees the page without the insight.
func (o *Orchestrator) RefreshWithProgress(ctx context.Context, sess *auth.UserSession, rawTicker string, onData func(*Page)) (*Page, error) {
	ticker, err := models.ParseTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	if err := o.requireSession(sess); err != nil {
		return nil, err
	}

	parent := ctx
	current := func() bool { return ctx.Err() == nil }
	if sess != nil {
		var done func()
		ctx, current, done = sess.BeginRefresh(ctx)
		defer done()
	}

	log := o.logger.With(zap.String("ticker", ticker.String()))
	if sess != nil {
		log = log.With(zap.String("session", sess.ID()))
	}

	snap, series, err := o.market.Fetch(ctx, ticker)
	if !current() {
		return nil, abandoned(parent)
	}
	if err != nil {
		return nil, err
	}

	page := o.basePage(ticker, snap, series)

	target, ok, err := o.target(sess, page)
	if err != nil {
		log.Error("entitlement resolution failed", zap.Error(err))
		return nil, err
	}
	if !ok {
		log.Info("insight skipped, no paid plan")
		return page, nil
	}
	if onData != nil {
		onData(page)
	}

	text, err := o.insights.Generate(ctx, snap, target)
	if !current() {
		return nil, abandoned(parent)
	}
	if err != nil {
		log.Warn("insight unavailable", zap.Error(err))
		page.InsightError = insightMessage(err)
		return page, nil
	}
	page.Insight = render.Narrative(text)
	return page, nil
}

// Chart fetches the series for a ticker and renders it as SVG. It applies
// the same authentication rule as Refresh but never calls a model.
func (o *Orchestrator) Chart(ctx context.Context, sess *auth.UserSession, rawTicker string) (string, error) {
	ticker, err := models.ParseTicker(rawTicker)
	if err != nil {
		return "", err
	}
	if err := o.requireSession(sess); err != nil {
		return "", err
	}
	_, series, err := o.market.Fetch(ctx, ticker)
	if err != nil {
		return "", err
	}
	return render.CandlestickSVG(series, o.opts.Chart), nil
}

func (o *Orchestrator) requireSession(sess *auth.UserSession) error {
	if !o.subscription() {
		return nil
	}
	if sess == nil || !sess.Authenticated() {
		return entitlement.ErrNotAuthenticated
	}
	return nil
}

// target picks the model for this lookup. ok is false when the session has
// no paid plan; the page is then marked for the upgrade notice.
func (o *Orchestrator) target(sess *auth.UserSession, page *Page) (insight.Target, bool, error) {
	if !o.subscription() {
		return o.opts.Community, true, nil
	}

	ent, err := o.resolver.Authorize(sess)
	switch {
	case errors.Is(err, entitlement.ErrPaymentRequired):
		page.UpgradeRequired = true
		page.InsightError = UpgradeNotice
		return insight.Target{}, false, nil
	case err != nil:
		return insight.Target{}, false, err
	}

	page.Entitlement = &ent
	return insight.Target{
		Provider:        ent.Provider,
		ProviderModelID: ent.ProviderModelID,
		CredentialKey:   ent.CredentialKey,
	}, true, nil
}

func (o *Orchestrator) basePage(ticker models.TickerSymbol, snap *models.StockSnapshot, series *models.PriceSeries) *Page {
	return &Page{
		Ticker:      ticker,
		Mode:        o.opts.Mode,
		Snapshot:    snap,
		Series:      series,
		Fields:      render.InfoPanel(snap),
		ChartSVG:    render.CandlestickSVG(series, o.opts.Chart),
		Caption:     render.ChartCaption,
		Footer:      render.Footer,
		GeneratedAt: o.now().UTC(),
	}
}

// abandoned reports why a refresh stopped early: the caller went away, or a
// newer refresh replaced it.
func abandoned(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return ErrSuperseded
}

// insightMessage is the user-facing text for a failed insight call. Provider
// detail stays in the logs.
func insightMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "The AI insight request timed out. Press Refresh to try again."
	}
	return fmt.Sprintf("AI insights are unavailable right now (%s). Press Refresh to try again.", reason(err))
}

func reason(err error) string {
	var ie *insight.InsightError
	if errors.As(err, &ie) && ie.Target.Provider != "" {
		return ie.Target.Provider + " request failed"
	}
	return "request failed"
}
