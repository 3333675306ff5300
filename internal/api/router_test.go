package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"eemeter/internal/api/models"
	"eemeter/internal/store"
	"eemeter/internal/weather"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// requestBody builds two years of monthly electricity periods, 30/day
// before 2014 and 25/day after, with flat 50F inline weather.
func requestBody(source string, save, ledger bool) map[string]any {
	var periods []map[string]any
	start := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 24; i++ {
		s := start.AddDate(0, i, 0)
		e := s.AddDate(0, 1, 0)
		daily := 30.0
		if i >= 12 {
			daily = 25
		}
		days := e.Sub(s).Hours() / 24
		periods = append(periods, map[string]any{
			"start":     s.Format("2006-01-02"),
			"end":       e.Format("2006-01-02"),
			"fuel_type": "electricity",
			"usage":     daily * days,
			"unit":      "kWh",
		})
	}
	body := map[string]any{
		"config": map[string]any{
			"name":       "office",
			"fuel_types": []string{"electricity"},
			"model":      map[string]any{"kind": "constant"},
			"retrofit":   map[string]any{"start": "2014-01-01"},
			"weather":    map[string]any{"source": source, "location": map[string]any{"lat": 40.7, "lon": -74.0}},
		},
		"periods": periods,
		"options": map[string]any{"save": save, "include_ledger": ledger},
	}
	if source == "inline" {
		var points []map[string]any
		for d := start; d.Before(start.AddDate(2, 0, 0)); d = d.AddDate(0, 0, 1) {
			points = append(points, map[string]any{"date": d.Format("2006-01-02"), "temp": 50})
		}
		body["weather"] = points
	}
	return body
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	w := do(t, NewRouter(Deps{}), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestEvaluateInlineSaveAndFetch(t *testing.T) {
	router := NewRouter(Deps{Store: newStore(t)})

	w := do(t, router, http.MethodPost, "/api/v1/evaluate", requestBody("inline", true, true))
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate = %d %s", w.Code, w.Body.String())
	}
	type evaluateResponse struct {
		RunID     string             `json:"run_id"`
		Evaluated []string           `json:"evaluated"`
		Results   map[string]any     `json:"results"`
		Ledger    []models.LedgerRow `json:"ledger"`
	}
	resp := decode[evaluateResponse](t, w)
	if resp.RunID == "" || len(resp.Evaluated) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if got := resp.Results["gross_savings_electricity"].(float64); got < 1824.999 || got > 1825.001 {
		t.Fatalf("gross savings = %v", got)
	}
	if len(resp.Ledger) != 24 || resp.Ledger[12].Phase != "post" {
		t.Fatalf("ledger rows = %d", len(resp.Ledger))
	}

	w = do(t, router, http.MethodGet, "/api/v1/runs", nil)
	runs := decode[models.RunsResponse](t, w)
	if len(runs.Runs) != 1 || runs.Runs[0].ID != resp.RunID || runs.Runs[0].Name != "office" {
		t.Fatalf("runs = %+v", runs)
	}

	w = do(t, router, http.MethodGet, "/api/v1/runs/"+resp.RunID, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "gross_savings_electricity") {
		t.Fatalf("get run = %d %s", w.Code, w.Body.String())
	}

	if w = do(t, router, http.MethodDelete, "/api/v1/runs/"+resp.RunID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/api/v1/runs/"+resp.RunID, nil)
	if e := decode[models.ErrorResponse](t, w); w.Code != http.StatusNotFound || e.Error.Code != "RUN_NOT_FOUND" {
		t.Fatalf("get deleted = %d %+v", w.Code, e)
	}
}

func TestEvaluateOpenMeteo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, _ := time.Parse("2006-01-02", q.Get("start_date"))
		to, _ := time.Parse("2006-01-02", q.Get("end_date"))
		var dates, temps []string
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			dates = append(dates, `"`+d.Format("2006-01-02")+`"`)
			temps = append(temps, "50")
		}
		fmt.Fprintf(w, `{"daily":{"time":[%s],"temperature_2m_mean":[%s]}}`, strings.Join(dates, ","), strings.Join(temps, ","))
	}))
	defer srv.Close()

	client := weather.NewOpenMeteo(srv.Client(), weather.WithBaseURL(srv.URL))
	router := NewRouter(Deps{Weather: client})
	w := do(t, router, http.MethodPost, "/api/v1/evaluate", requestBody("openmeteo", false, false))
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate = %d %s", w.Code, w.Body.String())
	}
	resp := decode[models.EvaluateResponse](t, w)
	if f, err := resp.Results.Float("normal_annual_hdd_electricity"); err != nil || f < 5474.999 || f > 5475.001 {
		t.Fatalf("normal hdd = %v, %v", f, err)
	}
	if resp.RunID != "" || resp.Ledger != nil {
		t.Fatalf("unexpected run or ledger: %+v", resp)
	}
}

func TestEvaluateErrors(t *testing.T) {
	router := NewRouter(Deps{})

	noWeather := requestBody("inline", false, false)
	delete(noWeather, "weather")

	badModel := requestBody("inline", false, false)
	badModel["config"].(map[string]any)["model"] = map[string]any{"kind": "neural"}

	badPeriod := requestBody("inline", false, false)
	badPeriod["periods"].([]map[string]any)[0]["end"] = "2012-01-01"

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"empty body", map[string]any{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"csv source", requestBody("csv", false, false), http.StatusBadRequest, "INVALID_CONFIG"},
		{"bad model", badModel, http.StatusBadRequest, "INVALID_CONFIG"},
		{"bad period", badPeriod, http.StatusBadRequest, "INVALID_HISTORY"},
		{"inline without weather", noWeather, http.StatusBadRequest, "INVALID_WEATHER"},
		{"openmeteo disabled", requestBody("openmeteo", false, false), http.StatusBadRequest, "INVALID_WEATHER"},
		{"save without store", requestBody("inline", true, false), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/v1/evaluate", tt.body)
			e := decode[models.ErrorResponse](t, w)
			if w.Code != tt.status || e.Error.Code != tt.code {
				t.Fatalf("got %d %s, want %d %s (%s)", w.Code, e.Error.Code, tt.status, tt.code, e.Error.Message)
			}
		})
	}
}

func TestRunsWithoutStore(t *testing.T) {
	w := do(t, NewRouter(Deps{}), http.MethodGet, "/api/v1/runs", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("runs = %d", w.Code)
	}
	w = do(t, NewRouter(Deps{Store: newStore(t)}), http.MethodGet, "/api/v1/runs?limit=zero", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit = %d", w.Code)
	}
}

func TestListMeters(t *testing.T) {
	w := do(t, NewRouter(Deps{}), http.MethodGet, "/api/v1/meters", nil)
	resp := decode[models.MetersResponse](t, w)
	if w.Code != http.StatusOK || len(resp.Models) != 4 || len(resp.Meters) == 0 {
		t.Fatalf("meters = %d %+v", w.Code, resp)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(Deps{AllowedOrigins: []string{"https://app.example.com"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/evaluate", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow origin = %q (status %d)", got, w.Code)
	}
}

func TestNotFound(t *testing.T) {
	w := do(t, NewRouter(Deps{}), http.MethodGet, "/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}
