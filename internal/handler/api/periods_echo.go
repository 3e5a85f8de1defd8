package api

import (
	"context"
	"encoding/json"
	"time"

	models "GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
	icache "GridPulse/internal/service/cache"
	"GridPulse/internal/service/ratelimit"
	"GridPulse/internal/usecase"
	xhttp "GridPulse/pkg/http"
	xlogger "GridPulse/pkg/logger"
	xutil "GridPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// PeriodsEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type PeriodsEchoHandler struct {
	logger    *xlogger.Logger
	det       *usecase.Detector
	assembler *usecase.DayAssembler
	periods   *usecase.PeriodsUseCase
	storage   domrepo.Storage
	collector *usecase.PriceCollector
	cache     icache.BytesCache
	rl        *ratelimit.Limiter

	best models.Criteria
	peak models.Criteria
}

func NewPeriodsEchoHandler(
	logger *xlogger.Logger,
	det *usecase.Detector,
	assembler *usecase.DayAssembler,
	periods *usecase.PeriodsUseCase,
	storage domrepo.Storage,
	best, peak models.Criteria,
) *PeriodsEchoHandler {
	return &PeriodsEchoHandler{
		logger:    logger,
		det:       det,
		assembler: assembler,
		periods:   periods,
		storage:   storage,
		rl:        ratelimit.New(),
		best:      best,
		peak:      peak,
	}
}

// SetCache injects an optional response cache.
func (h *PeriodsEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetCollector injects the collector for diagnostics.
func (h *PeriodsEchoHandler) SetCollector(c *usecase.PriceCollector) { h.collector = c }

func (h *PeriodsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/periods", h.Periods)
	g.GET("/periods/history", h.History)
	g.GET("/days/:date", h.Day)
	g.POST("/detect", h.Detect)
	g.GET("/diagnostics", h.Diagnostics)
}

// Periods returns the detection result for one zone-local day and direction.
// Defaults to today when no date is given.
func (h *PeriodsEchoHandler) Periods(c echo.Context) error {
	req := &models.PeriodsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Date == "" {
		req.Date = time.Now().UTC().Format("2006-01-02")
	}
	if !h.rl.Allow(c.RealIP()+":periods", 10, 5) {
		return xhttp.DataResponse(c, 429, "rate limited")
	}

	cacheKey := "periods:" + req.Zone + ":" + req.Date + ":" + req.Direction
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err == nil && ok {
			var dr models.DayResult
			if json.Unmarshal(b, &dr) == nil {
				return xhttp.SuccessResponse(c, &dr)
			}
		}
	}

	crit := h.best
	if req.Direction == string(models.DirectionPeak) {
		crit = h.peak
	}
	dr, err := h.computeDay(c.Request().Context(), req.Zone, req.Date, crit)
	if err != nil {
		h.logger.Error("periods usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if h.cache != nil {
		if b, err := json.Marshal(dr); err == nil {
			_ = h.cache.SetBytes(cacheKey, b, 60*time.Second)
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, dr)
}

// History queries stored periods over a time range.
func (h *PeriodsEchoHandler) History(c echo.Context) error {
	zone := c.QueryParam("zone")
	if zone == "" {
		return xhttp.BadRequestResponse(c, "zone required")
	}
	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), now.AddDate(0, 0, -7))
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
	from, to = xutil.AlignFromTo(from, to, "15m")
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 1000)

	res, err := h.periods.GetPeriods(c.Request().Context(), usecase.GetPeriodsParams{
		Zone:  zone,
		From:  from,
		To:    to,
		Limit: limit,
	})
	if err != nil {
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Day returns both directions for one day.
func (h *PeriodsEchoHandler) Day(c echo.Context) error {
	req := &models.DayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return xhttp.BadRequestResponse(c, "date must be YYYY-MM-DD")
	}
	if !h.rl.Allow(c.RealIP()+":day", 10, 5) {
		return xhttp.DataResponse(c, 429, "rate limited")
	}

	ctx := c.Request().Context()
	best, err := h.computeDay(ctx, req.Zone, date, h.best)
	if err != nil {
		h.logger.Error("day usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	peak, err := h.computeDay(ctx, req.Zone, date, h.peak)
	if err != nil {
		h.logger.Error("day usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]*models.DayResult{
		"best": best,
		"peak": peak,
	})
}

// Detect runs one-shot detection over a caller-supplied series. Nothing is
// cached or persisted.
func (h *PeriodsEchoHandler) Detect(c echo.Context) error {
	req := &models.DetectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":detect", 3, 1) {
		return xhttp.DataResponse(c, 429, "rate limited")
	}

	iv := make([]models.PriceInterval, 0, len(req.Intervals))
	for _, r := range req.Intervals {
		d, err := time.ParseDuration(r.Duration)
		if err != nil || d <= 0 {
			return xhttp.BadRequestResponse(c, "bad interval duration")
		}
		iv = append(iv, models.PriceInterval{
			Start:    r.Start.UTC(),
			Duration: d,
			Zone:     req.Zone,
			Price:    r.Price,
			Smoothed: r.Price,
			Level:    models.ParsePriceLevel(r.Level),
			Rating:   r.Rating,
		})
	}

	res, err := h.det.ComputeSeries(c.Request().Context(), req.Zone, iv, req.Criteria)
	if err != nil {
		h.logger.Error("detect usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Diagnostics reports stream and storage health.
func (h *PeriodsEchoHandler) Diagnostics(c echo.Context) error {
	out := map[string]interface{}{
		"time": time.Now().UTC(),
	}
	if h.collector != nil {
		out["stream_connected"] = h.collector.IsConnected()
	}
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.storage.Health(ctx); err != nil {
			out["storage"] = err.Error()
		} else {
			out["storage"] = "ok"
		}
	}
	return xhttp.SuccessResponse(c, out)
}

// computeDay resolves a day's intervals from storage first and falls back to
// the provider curve endpoint, then detects.
func (h *PeriodsEchoHandler) computeDay(ctx context.Context, zone, date string, crit models.Criteria) (*models.DayResult, error) {
	if h.storage != nil {
		iv, err := h.storage.QueryDay(ctx, zone, date)
		if err == nil && len(iv) > 0 {
			return h.det.ComputeDay(ctx, zone, date, iv, crit)
		}
	}
	best, peak, err := h.assembler.Backfill(ctx, zone, date)
	if err != nil {
		return nil, err
	}
	if crit.Direction == models.DirectionPeak {
		return peak, nil
	}
	return best, nil
}
