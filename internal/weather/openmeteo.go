package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// DefaultArchiveURL is the Open-Meteo historical weather endpoint.
const DefaultArchiveURL = "https://archive-api.open-meteo.com/v1/archive"

// Location is a point on the map in decimal degrees.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
}

func (l Location) String() string {
	return strconv.FormatFloat(l.Lat, 'f', 4, 64) + "," + strconv.FormatFloat(l.Lon, 'f', 4, 64)
}

// OpenMeteo fetches daily mean temperatures from the Open-Meteo archive.
type OpenMeteo struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	cache   *Cache
}

// OpenMeteoOption customizes an OpenMeteo client.
type OpenMeteoOption func(*OpenMeteo)

// WithBaseURL points the client at another archive endpoint.
func WithBaseURL(u string) OpenMeteoOption {
	return func(o *OpenMeteo) { o.baseURL = u }
}

// WithCache serves repeated requests from c.
func WithCache(c *Cache) OpenMeteoOption {
	return func(o *OpenMeteo) { o.cache = c }
}

// WithBackoff overrides the retry schedule.
func WithBackoff(b BackoffConfig) OpenMeteoOption {
	return func(o *OpenMeteo) { o.httpCfg.Backoff = b }
}

func NewOpenMeteo(client *http.Client, opts ...OpenMeteoOption) *OpenMeteo {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	o := &OpenMeteo{
		baseURL: DefaultArchiveURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openmeteo-archive",
			MaxRequests: 5,
			Interval:    time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type archiveResponse struct {
	Daily struct {
		Time []string   `json:"time"`
		Temp []*float64 `json:"temperature_2m_mean"`
	} `json:"daily"`
}

// Daily returns daily mean temperatures for the inclusive date range
// [start, end] in unit. Null values in the archive become missing days.
func (o *OpenMeteo) Daily(ctx context.Context, loc Location, start, end time.Time, unit model.TempUnit) (*Series, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end %s before start %s", dateKey(end), dateKey(start))
	}
	var tempUnit string
	switch unit {
	case model.DegF:
		tempUnit = "fahrenheit"
	case model.DegC:
		tempUnit = "celsius"
	default:
		return nil, fmt.Errorf("unsupported temperature unit %q", unit)
	}

	key := CacheKey(loc.Lat, loc.Lon, start, end, unit)
	if s, ok := o.cache.Get(key); ok {
		return s, nil
	}

	build := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
		values.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
		values.Set("start_date", dateKey(start))
		values.Set("end_date", dateKey(end))
		values.Set("daily", "temperature_2m_mean")
		values.Set("temperature_unit", tempUnit)
		values.Set("timezone", "UTC")
		return http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequest(ctx, o.httpCfg, o.circuit, build)
	if err != nil {
		return nil, fmt.Errorf("open-meteo %s: %w", loc, err)
	}
	defer resp.Body.Close()

	var payload archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("open-meteo %s: decode: %w", loc, err)
	}
	if len(payload.Daily.Time) != len(payload.Daily.Temp) {
		return nil, fmt.Errorf("open-meteo %s: %d dates but %d temperatures", loc, len(payload.Daily.Time), len(payload.Daily.Temp))
	}

	points := make([]Point, 0, len(payload.Daily.Time))
	for i, ds := range payload.Daily.Time {
		d, err := time.Parse(dateLayout, ds)
		if err != nil {
			return nil, fmt.Errorf("open-meteo %s: %w", loc, err)
		}
		temp := stats.Missing()
		if v := payload.Daily.Temp[i]; v != nil {
			temp = stats.Present(*v)
		}
		points = append(points, Point{Date: d, Temp: temp})
	}
	s, err := NewSeries(unit, points)
	if err != nil {
		return nil, err
	}
	log.Printf("[weather] fetched %d days for %s (%s..%s)", s.Len(), loc, dateKey(start), dateKey(end))
	o.cache.Set(key, s)
	return s, nil
}

// Normal fetches the given number of whole years ending the day before
// asOf and averages them into a 365-day normal.
func (o *OpenMeteo) Normal(ctx context.Context, loc Location, years int, asOf time.Time, unit model.TempUnit) (*Normal, error) {
	if years < 1 {
		return nil, fmt.Errorf("years must be >= 1, got %d", years)
	}
	end := model.CalendarDate(asOf).AddDate(0, 0, -1)
	start := end.AddDate(-years, 0, 1)
	s, err := o.Daily(ctx, loc, start, end, unit)
	if err != nil {
		return nil, err
	}
	return NormalFromSeries(s)
}
