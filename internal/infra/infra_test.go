package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("User-Agent: got %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("X-Test header missing")
		}
		w.Write([]byte(`{"name":"Apple"}`))
	}))
	defer srv.Close()

	var out struct{ Name string }
	c := NewClient(time.Second)
	if err := c.GetJSON(context.Background(), srv.URL, map[string]string{"X-Test": "1"}, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != "Apple" {
		t.Errorf("Name: got %q", out.Name)
	}
}

func TestPostJSONHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		http.Error(w, `{"error":"nope"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient(time.Second).PostJSON(context.Background(), srv.URL, map[string]string{"a": "b"}, nil, nil)
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if he.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode: got %d", he.StatusCode)
	}
}

func TestHTTPErrorMessage(t *testing.T) {
	err := &HTTPError{StatusCode: 404, Status: "Not Found", Body: "missing"}
	if err.Error() != "HTTP 404 Not Found: missing" {
		t.Errorf("got %q", err.Error())
	}
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
}

func TestRateLimiterRespectsContext(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestPerSecond(t *testing.T) {
	if PerSecond(0) != nil {
		t.Error("PerSecond(0) should be unlimited (nil)")
	}
	rl := PerSecond(5)
	if rl == nil || rl.maxTokens != 5 || rl.refillRate != 200*time.Millisecond {
		t.Errorf("PerSecond(5): %+v", rl)
	}
}
