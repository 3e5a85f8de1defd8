package engine

import (
	"math"
	"sort"

	"GridPulse/internal/domain/models"
)

// SmootherConfig tunes outlier detection. Zero values fall back to the
// defaults below; thresholds are expressed in local standard deviations.
type SmootherConfig struct {
	Context    int     `yaml:"context" json:"context"`       // neighbors per side, min 3
	Confidence float64 `yaml:"confidence" json:"confidence"` // residual bound, ~95% two-sided at 2.0
	Symmetry   float64 `yaml:"symmetry" json:"symmetry"`     // trend consistency tolerance
	Zigzag     float64 `yaml:"zigzag" json:"zigzag"`         // cluster relative volatility
}

const (
	defaultContext    = 3
	defaultConfidence = 2.0
	defaultSymmetry   = 1.5
	defaultZigzag     = 2.0
)

func (c *SmootherConfig) normalize() {
	if c.Context < defaultContext {
		c.Context = defaultContext
	}
	if c.Confidence <= 0 {
		c.Confidence = defaultConfidence
	}
	if c.Symmetry <= 0 {
		c.Symmetry = defaultSymmetry
	}
	if c.Zigzag <= 0 {
		c.Zigzag = defaultZigzag
	}
}

// Smooth classifies isolated spikes and zigzag clusters and rewrites only the
// Smoothed field of affected intervals with the locally predicted value.
// Original prices are never touched; intervals within Context of either series
// edge are never smoothed. Returns the sorted indexes that were smoothed.
func Smooth(iv []models.PriceInterval, cfg SmootherConfig) []int {
	cfg.normalize()
	for i := range iv {
		iv[i].Smoothed = iv[i].Price
	}
	ctx := cfg.Context
	if len(iv) < 2*ctx+1 {
		return nil
	}

	touched := make(map[int]bool)

	for i := ctx; i < len(iv)-ctx; i++ {
		pred, localStd, ok := neighborhoodFit(iv, i, ctx)
		if !ok {
			continue
		}
		floor := stdFloor(pred)
		bound := localStd
		if bound < floor {
			bound = floor
		}
		resid := iv[i].Price - pred
		if math.Abs(resid) <= cfg.Confidence*bound {
			continue
		}
		if trendConsistent(iv, i, ctx, cfg.Symmetry*bound) {
			// trend break (ramp corner, tent peak, level shift): keep it
			continue
		}
		iv[i].Smoothed = pred
		touched[i] = true
	}

	smoothZigzags(iv, cfg, touched)

	if len(touched) == 0 {
		return nil
	}
	out := make([]int, 0, len(touched))
	for i := range touched {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// neighborhoodFit fits a line over the 2*ctx neighbors of i (excluding i),
// returning the predicted value at i and the std deviation of neighbor
// residuals around the fit.
func neighborhoodFit(iv []models.PriceInterval, i, ctx int) (pred, localStd float64, ok bool) {
	xs := make([]float64, 0, 2*ctx)
	ys := make([]float64, 0, 2*ctx)
	for off := -ctx; off <= ctx; off++ {
		if off == 0 {
			continue
		}
		xs = append(xs, float64(off))
		ys = append(ys, iv[i+off].Price)
	}
	fit := fitLine(xs, ys)
	resids := make([]float64, len(xs))
	for j := range xs {
		resids[j] = ys[j] - fit.at(xs[j])
	}
	return fit.at(0), stdDev(resids), true
}

// trendConsistent reports whether point i agrees with the local trend on at
// least one side: the before-fit and after-fit are each extrapolated to i and
// the point kept when it lands within tol of either. Ramp corners, tent peaks
// and level shifts agree with one side; an isolated spike agrees with neither.
func trendConsistent(iv []models.PriceInterval, i, ctx int, tol float64) bool {
	lxs := make([]float64, 0, ctx)
	lys := make([]float64, 0, ctx)
	rxs := make([]float64, 0, ctx)
	rys := make([]float64, 0, ctx)
	for off := 1; off <= ctx; off++ {
		lxs = append(lxs, float64(-off))
		lys = append(lys, iv[i-off].Price)
		rxs = append(rxs, float64(off))
		rys = append(rys, iv[i+off].Price)
	}
	left := math.Abs(iv[i].Price - fitLine(lxs, lys).at(0))
	right := math.Abs(iv[i].Price - fitLine(rxs, rys).at(0))
	return left <= tol || right <= tol
}

// smoothZigzags finds short alternating clusters whose volatility dwarfs the
// surrounding trend and replaces the whole cluster with the local fit in one
// pass. It runs on the already point-smoothed series so an isolated spike
// fixed by the first pass does not masquerade as a cluster.
func smoothZigzags(iv []models.PriceInterval, cfg SmootherConfig, touched map[int]bool) {
	ctx := cfg.Context
	n := len(iv)
	diffs := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diffs[i-1] = iv[i].Smoothed - iv[i-1].Smoothed
	}

	i := ctx
	for i < n-ctx-1 {
		end := i
		for end+1 < n-ctx && alternating(diffs[end], diffs[end+1]) {
			end++
		}
		// cluster points i..end+1 need at least 3 alternating diffs
		if end-i >= 2 {
			lo, hi := i, end+1 // point indexes, inclusive
			if zigzagVolatile(diffs, lo, hi, ctx, cfg.Zigzag) {
				applyClusterFit(iv, lo, hi, ctx, touched)
			}
			i = end + 1
			continue
		}
		i++
	}
}

// clusterAmpRatio bounds how unequal two diffs of a zigzag pair may be: the
// smaller magnitude must be at least this share of the larger one.
const clusterAmpRatio = 0.25

// alternating reports whether two successive diffs form a genuine zigzag
// pair: opposite signs and comparable magnitude. Low-amplitude jitter next to
// a real move must not chain into a cluster.
func alternating(a, b float64) bool {
	if !((a > 0 && b < 0) || (a < 0 && b > 0)) {
		return false
	}
	lo, hi := math.Abs(a), math.Abs(b)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo >= clusterAmpRatio*hi
}

// zigzagVolatile compares the diff volatility inside [lo,hi] against the
// margins on either side.
func zigzagVolatile(diffs []float64, lo, hi, ctx int, threshold float64) bool {
	cluster := diffs[lo:hi] // diffs inside the point range
	margin := make([]float64, 0, 2*ctx)
	for j := lo - ctx; j < lo; j++ {
		if j >= 0 {
			margin = append(margin, diffs[j])
		}
	}
	for j := hi; j < hi+ctx && j < len(diffs); j++ {
		margin = append(margin, diffs[j])
	}
	cv := stdDev(cluster)
	mv := stdDev(margin)
	floor := stdFloor(mean(cluster))
	if mv < floor {
		mv = floor
	}
	return cv/mv >= threshold
}

// applyClusterFit fits one line over the cluster plus its margins and assigns
// the prediction to every cluster point (edges still excluded).
func applyClusterFit(iv []models.PriceInterval, lo, hi, ctx int, touched map[int]bool) {
	from := lo - ctx
	if from < 0 {
		from = 0
	}
	to := hi + ctx
	if to > len(iv)-1 {
		to = len(iv) - 1
	}
	xs := make([]float64, 0, to-from+1)
	ys := make([]float64, 0, to-from+1)
	for j := from; j <= to; j++ {
		if j >= lo && j <= hi {
			continue // fit over the surroundings, not the noise itself
		}
		xs = append(xs, float64(j))
		ys = append(ys, iv[j].Smoothed)
	}
	fit := fitLine(xs, ys)
	for j := lo; j <= hi; j++ {
		if j < ctx || j >= len(iv)-ctx {
			continue
		}
		iv[j].Smoothed = fit.at(float64(j))
		touched[j] = true
	}
}

// stdFloor keeps thresholds meaningful on flat neighborhoods where the local
// deviation collapses to zero.
func stdFloor(ref float64) float64 {
	return 0.005 * math.Max(1, math.Abs(ref))
}
