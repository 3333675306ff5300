package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"eemeter/internal/model"
)

const archiveBody = `{"daily":{"time":["2014-01-01","2014-01-02","2014-01-03"],"temperature_2m_mean":[41.2,null,39.5]}}`

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

func TestOpenMeteoDaily(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		if q.Get("start_date") != "2014-01-01" || q.Get("end_date") != "2014-01-03" {
			t.Errorf("dates = %s..%s", q.Get("start_date"), q.Get("end_date"))
		}
		if q.Get("temperature_unit") != "fahrenheit" || q.Get("daily") != "temperature_2m_mean" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(archiveBody))
	}))
	defer srv.Close()

	client := NewOpenMeteo(srv.Client(), WithBaseURL(srv.URL), WithCache(NewCache(time.Hour)), WithBackoff(fastBackoff))
	loc := Location{Lat: 37.77, Lon: -122.42}
	s, err := client.Daily(context.Background(), loc, day(2014, 1, 1), day(2014, 1, 3), model.DegF)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 || s.Unit() != model.DegF {
		t.Fatalf("series len=%d unit=%s", s.Len(), s.Unit())
	}
	pts := s.Points()
	if pts[0].Temp.Value != 41.2 || !pts[1].Date.Equal(day(2014, 1, 3)) {
		t.Fatalf("points = %v", pts)
	}

	if _, err := client.Daily(context.Background(), loc, day(2014, 1, 1), day(2014, 1, 3), model.DegF); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("server called %d times, want 1 (second call cached)", n)
	}
}

func TestOpenMeteoRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(archiveBody))
	}))
	defer srv.Close()

	client := NewOpenMeteo(srv.Client(), WithBaseURL(srv.URL), WithBackoff(fastBackoff))
	if _, err := client.Daily(context.Background(), Location{}, day(2014, 1, 1), day(2014, 1, 3), model.DegF); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("calls = %d, want 3", n)
	}
}

func TestOpenMeteoDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewOpenMeteo(srv.Client(), WithBaseURL(srv.URL), WithBackoff(fastBackoff))
	_, err := client.Daily(context.Background(), Location{}, day(2014, 1, 1), day(2014, 1, 3), model.DegC)
	if !errors.Is(err, ErrUnexpected) {
		t.Fatalf("err = %v, want ErrUnexpected", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestOpenMeteoValidatesArguments(t *testing.T) {
	client := NewOpenMeteo(nil)
	if _, err := client.Daily(context.Background(), Location{}, day(2014, 1, 3), day(2014, 1, 1), model.DegF); err == nil {
		t.Fatal("expected error for reversed range")
	}
	if _, err := client.Daily(context.Background(), Location{}, day(2014, 1, 1), day(2014, 1, 3), "K"); err == nil {
		t.Fatal("expected error for unknown unit")
	}
	if _, err := client.Normal(context.Background(), Location{}, 0, time.Now(), model.DegF); err == nil {
		t.Fatal("expected error for zero years")
	}
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(time.Hour)
	c.now = func() time.Time { return now }

	s, _ := NewSeries(model.DegF, nil)
	c.Set("k", s)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("fresh entry missing")
	}
	now = now.Add(2 * time.Hour)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	if n := c.Purge(); n != 1 || c.Len() != 0 {
		t.Fatalf("purged %d, len %d", n, c.Len())
	}

	var nilCache *Cache
	nilCache.Set("k", s)
	if _, ok := nilCache.Get("k"); ok {
		t.Fatal("nil cache should not hold entries")
	}
}

func TestCacheCleanupLifecycle(t *testing.T) {
	c := NewCache(time.Hour)
	if err := c.StartCleanup(time.Hour); err != nil {
		t.Fatal(err)
	}
	c.Stop()
	c.Stop()
}

func TestCacheKeyDistinguishesRequests(t *testing.T) {
	a := CacheKey(1, 2, day(2014, 1, 1), day(2014, 2, 1), model.DegF)
	b := CacheKey(1, 2, day(2014, 1, 1), day(2014, 2, 1), model.DegC)
	if a == b || len(a) != 64 {
		t.Fatalf("keys %q and %q", a, b)
	}
}

func TestCacheFromEnv(t *testing.T) {
	t.Setenv("WEATHER_CACHE_TTL", "off")
	if CacheFromEnv() != nil {
		t.Fatal("cache should be disabled")
	}
	t.Setenv("WEATHER_CACHE_TTL", "90m")
	if c := CacheFromEnv(); c == nil || c.ttl != 90*time.Minute {
		t.Fatal("expected 90m cache")
	}
}
