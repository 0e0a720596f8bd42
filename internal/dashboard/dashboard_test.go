package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/alphapredict/internal/auth"
	"github.com/seenimoa/alphapredict/internal/config"
	"github.com/seenimoa/alphapredict/internal/entitlement"
	"github.com/seenimoa/alphapredict/internal/insight"
	"github.com/seenimoa/alphapredict/internal/marketdata"
	"github.com/seenimoa/alphapredict/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Fakes
// ════════════════════════════════════════════════════════════════════

type fakeMarket struct {
	calls   atomic.Int32
	started chan struct{} // signalled when a SLOW fetch begins
}

func (f *fakeMarket) Fetch(ctx context.Context, sym models.TickerSymbol) (*models.StockSnapshot, *models.PriceSeries, error) {
	f.calls.Add(1)
	switch sym {
	case "ZZZZ":
		return nil, nil, &marketdata.DataUnavailableError{Symbol: "ZZZZ", Reason: "symbol not found", NotFound: true}
	case "SLOW":
		if f.started != nil {
			f.started <- struct{}{}
		}
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	ts := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	return &models.StockSnapshot{
			Symbol:       sym,
			CompanyName:  null.StringFrom("Apple Inc."),
			ExchangeCode: null.StringFrom("NMS"),
			CurrentPrice: null.FloatFrom(190.12),
		}, &models.PriceSeries{Symbol: sym, Interval: "1m", Bars: []models.OHLCBar{
			{Timestamp: ts, Open: 190, High: 190.5, Low: 189.8, Close: 190.2, Volume: 1200},
			{Timestamp: ts.Add(time.Minute), Open: 190.2, High: 190.3, Low: 189.9, Close: 190.0, Volume: 900},
		}}, nil
}

type fakeInsight struct {
	mu      sync.Mutex
	text    string
	err     error
	targets []insight.Target
}

func (f *fakeInsight) Generate(_ context.Context, _ *models.StockSnapshot, t insight.Target) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, t)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeInsight) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.targets)
}

var communityTarget = insight.Target{Provider: "gemini", ProviderModelID: "gemini-2.0-flash", CredentialKey: "GOOGLE_API_KEY"}

func newCommunity(m *fakeMarket, g *fakeInsight) *Orchestrator {
	return New(m, nil, g, Options{Mode: config.ModeCommunity, Community: communityTarget})
}

func newSubscription(m *fakeMarket, g *fakeInsight) *Orchestrator {
	return New(m, entitlement.NewResolver(nil), g, Options{Mode: config.ModeSubscription})
}

func loggedIn(t *testing.T, tier string, paid bool) *auth.UserSession {
	t.Helper()
	dir := auth.NewStaticDirectory([]config.StaticUser{
		{Email: "jane@example.com", Password: "pw", FirstName: "Jane", Tier: tier, Paid: paid},
	})
	s := auth.NewSession()
	if err := auth.NewGate(dir, dir, nil).Submit(context.Background(), s, "jane@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return s
}

// ════════════════════════════════════════════════════════════════════
// Community Mode
// ════════════════════════════════════════════════════════════════════

func TestRefresh_Community(t *testing.T) {
	m := &fakeMarket{}
	g := &fakeInsight{text: "## Outlook\n\nShares may **rise** modestly."}
	o := newCommunity(m, g)

	page, err := o.Refresh(context.Background(), auth.NewSession(), " aapl ")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if page.Ticker != "AAPL" {
		t.Errorf("ticker = %q", page.Ticker)
	}
	if len(g.targets) != 1 || g.targets[0] != communityTarget {
		t.Errorf("targets = %+v, want community model", g.targets)
	}
	if len(page.Insight) != 2 || page.Insight[1] != "Shares may rise modestly." {
		t.Errorf("insight = %q", page.Insight)
	}
	if !strings.HasPrefix(page.ChartSVG, "<svg") {
		t.Error("chart missing")
	}
	if len(page.Fields) != 4 || page.Fields[2].Value != "$190.12" {
		t.Errorf("fields = %+v", page.Fields)
	}
	if page.Footer == "" || page.Caption == "" {
		t.Error("footer and caption must be set")
	}
}

func TestRefresh_EmptyTicker(t *testing.T) {
	m := &fakeMarket{}
	g := &fakeInsight{}
	_, err := newCommunity(m, g).Refresh(context.Background(), nil, "   ")
	if !errors.Is(err, models.ErrEmptyTicker) {
		t.Fatalf("err = %v, want ErrEmptyTicker", err)
	}
	if m.calls.Load() != 0 {
		t.Error("market data should not be fetched for an empty ticker")
	}
}

func TestRefresh_DataUnavailable(t *testing.T) {
	m := &fakeMarket{}
	g := &fakeInsight{text: "x"}
	_, err := newCommunity(m, g).Refresh(context.Background(), nil, "ZZZZ")
	if !errors.Is(err, marketdata.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
	if g.calls() != 0 {
		t.Error("no prompt may be built from a failed fetch")
	}
}

func TestRefresh_InsightFailureDegrades(t *testing.T) {
	m := &fakeMarket{}
	g := &fakeInsight{err: &insight.InsightError{Target: communityTarget, Err: errors.New("503")}}
	page, err := newCommunity(m, g).Refresh(context.Background(), nil, "AAPL")
	if err != nil {
		t.Fatalf("insight failure should not fail the page: %v", err)
	}
	if page.ChartSVG == "" || len(page.Fields) == 0 {
		t.Error("chart and info panel must survive an insight failure")
	}
	if !strings.Contains(page.InsightError, "gemini") {
		t.Errorf("insight error = %q", page.InsightError)
	}
	if len(page.Insight) != 0 {
		t.Error("no narrative expected")
	}
}

// ════════════════════════════════════════════════════════════════════
// Subscription Mode
// ════════════════════════════════════════════════════════════════════

func TestRefresh_SubscriptionRequiresLogin(t *testing.T) {
	m := &fakeMarket{}
	g := &fakeInsight{}
	o := newSubscription(m, g)

	for _, s := range []*auth.UserSession{nil, auth.NewSession()} {
		_, err := o.Refresh(context.Background(), s, "AAPL")
		if !errors.Is(err, entitlement.ErrNotAuthenticated) {
			t.Errorf("err = %v, want ErrNotAuthenticated", err)
		}
	}
	if m.calls.Load() != 0 || g.calls() != 0 {
		t.Error("nothing may be fetched before login")
	}
}

func TestRefresh_UnpaidSkipsInsight(t *testing.T) {
	m := &fakeMarket{}
	g := &fakeInsight{text: "x"}
	page, err := newSubscription(m, g).Refresh(context.Background(), loggedIn(t, "Premium", false), "AAPL")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if g.calls() != 0 {
		t.Errorf("provider called %d times for unpaid session", g.calls())
	}
	if !page.UpgradeRequired || page.InsightError != UpgradeNotice {
		t.Errorf("page should carry the upgrade notice: %+v", page)
	}
	if page.ChartSVG == "" {
		t.Error("chart is shown to unpaid users")
	}
}

func TestRefresh_TierRouting(t *testing.T) {
	tests := []struct {
		tier    string
		wantKey string
		wantID  string
	}{
		{"Basic", "OPENAI_API_KEY-BASIC_EDITION", "gpt-basic-id"},
		{"Premium", "OPENAI_API_KEY-PREMIUM_EDITION", "gpt-4o"},
		{"Enterprise", "GOOGLE_API_KEY", "gemini-2.0-flash"},
	}
	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			g := &fakeInsight{text: "ok"}
			page, err := newSubscription(&fakeMarket{}, g).Refresh(context.Background(), loggedIn(t, tt.tier, true), "AAPL")
			if err != nil {
				t.Fatalf("Refresh: %v", err)
			}
			if len(g.targets) != 1 {
				t.Fatalf("provider calls = %d, want 1", len(g.targets))
			}
			got := g.targets[0]
			if got.CredentialKey != tt.wantKey || got.ProviderModelID != tt.wantID {
				t.Errorf("target = %+v", got)
			}
			if page.Entitlement == nil || page.Entitlement.Tier != tt.tier {
				t.Errorf("entitlement = %+v", page.Entitlement)
			}
		})
	}
}

func TestRefresh_UnknownTierIsFatal(t *testing.T) {
	g := &fakeInsight{text: "x"}
	_, err := newSubscription(&fakeMarket{}, g).Refresh(context.Background(), loggedIn(t, "Platinum", true), "AAPL")
	if !errors.Is(err, entitlement.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if g.calls() != 0 {
		t.Error("no fallback model may be called")
	}
}

// ════════════════════════════════════════════════════════════════════
// Overlapping Refreshes
// ════════════════════════════════════════════════════════════════════

func TestRefresh_NewerRefreshSupersedes(t *testing.T) {
	m := &fakeMarket{started: make(chan struct{}, 1)}
	g := &fakeInsight{text: "fresh"}
	o := newCommunity(m, g)
	s := auth.NewSession()

	errc := make(chan error, 1)
	go func() {
		_, err := o.Refresh(context.Background(), s, "SLOW")
		errc <- err
	}()
	<-m.started

	page, err := o.Refresh(context.Background(), s, "AAPL")
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if page.Ticker != "AAPL" {
		t.Errorf("ticker = %q", page.Ticker)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("first refresh err = %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh was not cancelled")
	}
	if g.calls() != 1 {
		t.Errorf("insight calls = %d, want 1", g.calls())
	}
}

func TestRefresh_CallerCancelled(t *testing.T) {
	m := &fakeMarket{started: make(chan struct{}, 1)}
	o := newCommunity(m, &fakeInsight{})
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := o.Refresh(ctx, auth.NewSession(), "SLOW")
		errc <- err
	}()
	<-m.started
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// ════════════════════════════════════════════════════════════════════
// Chart
// ════════════════════════════════════════════════════════════════════

func TestChart(t *testing.T) {
	g := &fakeInsight{}
	o := newCommunity(&fakeMarket{}, g)

	svg, err := o.Chart(context.Background(), nil, "AAPL")
	if err != nil {
		t.Fatalf("Chart: %v", err)
	}
	if !strings.Contains(svg, "AAPL Intraday") {
		t.Error("chart title missing")
	}
	if g.calls() != 0 {
		t.Error("chart endpoint must not call a model")
	}

	if _, err := o.Chart(context.Background(), nil, "ZZZZ"); !errors.Is(err, marketdata.ErrDataUnavailable) {
		t.Errorf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestRefreshWithProgress(t *testing.T) {
	g := &fakeInsight{text: "ok"}
	o := newCommunity(&fakeMarket{}, g)

	var seen *Page
	page, err := o.RefreshWithProgress(context.Background(), nil, "AAPL", func(p *Page) {
		if g.calls() != 0 {
			t.Error("progress hook should run before the model call")
		}
		seen = p
	})
	if err != nil {
		t.Fatalf("RefreshWithProgress: %v", err)
	}
	if seen != page {
		t.Error("hook should receive the page being built")
	}
	if len(page.Insight) != 1 {
		t.Errorf("insight = %q", page.Insight)
	}
}
