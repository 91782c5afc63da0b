package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	apperrors "jobscout-engine/internal/errors"
)

func TestGet_StatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "25" || r.URL.Query().Get("keywords") != "go" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/5.0") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c, err := New(Config{Timeout: time.Second}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Get(context.Background(), srv.URL+"/search?keywords=go", url.Values{"start": {"25"}})
	if err != nil {
		t.Fatalf("an HTTP error status is not a transport error: %v", err)
	}
	if resp.Status != http.StatusTooManyRequests || string(resp.Body) != "slow down" {
		t.Errorf("resp = %d %q", resp.Status, resp.Body)
	}
}

func TestGet_TimeoutIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New(Config{Timeout: 20 * time.Millisecond}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected a timeout")
	}
	if !apperrors.IsType(err, apperrors.ErrTypeTransport) || !apperrors.Retryable(err) {
		t.Errorf("timeout should be a retryable transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("error = %v", err)
	}
}

func TestGet_KeepsCookies(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "bcookie", Value: "v1", Path: "/"})
			return
		}
		if c, err := r.Cookie("bcookie"); err != nil || c.Value != "v1" {
			t.Errorf("cookie not replayed: %v", err)
		}
	}))
	defer srv.Close()

	c, err := New(Config{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), srv.URL, nil); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNew_BadProxy(t *testing.T) {
	if _, err := New(Config{ProxyURL: "http://[::1"}, nil); err == nil {
		t.Error("expected a proxy url error")
	}
}
