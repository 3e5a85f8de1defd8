package provider

import (
	"context"
	"fmt"
	"sort"
	"time"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
	"GridPulse/internal/service/ratelimit"
	pkgcache "GridPulse/pkg/cache"
	xhttp "GridPulse/pkg/http"
)

// How long a fetched curve is served from memory before the provider is asked
// again. Published curves are immutable, so this only bounds staleness for
// the rare republish.
const curveCacheTTL = 5 * time.Minute

// CurveClient fetches published day-ahead curves over REST. Calls are token
// bucket limited per zone so polling every zone cannot hammer the provider,
// and fetched curves are memoized briefly.
type CurveClient struct {
	baseURL  string
	apiToken string
	http     *xhttp.Client
	limiter  *ratelimit.Limiter
	memo     pkgcache.Service
}

func NewCurveClient(baseURL, apiToken string, timeout time.Duration) drepo.CurveFetcher {
	return &CurveClient{
		baseURL:  baseURL,
		apiToken: apiToken,
		http:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter:  ratelimit.New(),
		memo:     pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(256)),
	}
}

type curvePrice struct {
	StartsAt string  `json:"starts_at"` // RFC3339
	Duration int64   `json:"duration"`  // seconds
	Price    float64 `json:"price"`
	Level    string  `json:"level"`
}

type curveResponse struct {
	Zone     string       `json:"zone"`
	Currency string       `json:"currency"`
	Prices   []curvePrice `json:"prices"`
}

// FetchDay pulls the full curve for one zone-local day. The result is sorted
// by start time; an empty curve means the provider has not published the day
// yet and is reported as an error.
func (c *CurveClient) FetchDay(ctx context.Context, zone, date string) ([]models.PriceInterval, error) {
	memoKey := "curve:" + zone + ":" + date
	var cached interface{}
	if err := c.memo.Get(ctx, memoKey, &cached); err == nil {
		if iv, ok := cached.([]models.PriceInterval); ok {
			return iv, nil
		}
	}

	if !c.limiter.Allow("curve:"+zone, 4, 0.5) {
		return nil, fmt.Errorf("curve fetch %s: rate limited", zone)
	}

	var resp curveResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v1/prices",
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiToken,
		},
		QueryParams: map[string][]string{
			"zone": {zone},
			"date": {date},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("curve fetch %s %s: %w", zone, date, err)
	}
	if len(resp.Prices) == 0 {
		return nil, fmt.Errorf("curve fetch %s %s: day not published", zone, date)
	}

	iv := make([]models.PriceInterval, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		start, err := time.Parse(time.RFC3339, p.StartsAt)
		if err != nil {
			return nil, fmt.Errorf("curve fetch %s %s: bad start %q: %w", zone, date, p.StartsAt, err)
		}
		d := time.Duration(p.Duration) * time.Second
		if d <= 0 {
			d = time.Hour
		}
		iv = append(iv, models.PriceInterval{
			Start:    start.UTC(),
			Duration: d,
			Zone:     zone,
			Price:    p.Price,
			Smoothed: p.Price,
			Level:    models.ParsePriceLevel(p.Level),
		})
	}
	sort.Slice(iv, func(i, j int) bool { return iv[i].Start.Before(iv[j].Start) })
	_ = c.memo.Set(ctx, memoKey, iv, curveCacheTTL)
	return iv, nil
}
