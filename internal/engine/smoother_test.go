package engine

import (
	"math"
	"testing"

	"GridPulse/internal/domain/models"
)

func fromPrices(prices ...float64) []models.PriceInterval {
	iv := make([]models.PriceInterval, len(prices))
	for i, p := range prices {
		iv[i].Price = p
	}
	return iv
}

func TestSmoothIsolatedSpike(t *testing.T) {
	iv := fromPrices(20, 20.5, 21, 21.5, 40, 22.5, 23, 23.5, 24, 24.5)
	got := Smooth(iv, SmootherConfig{})
	if len(got) != 1 || got[0] != 4 {
		t.Fatalf("smoothed indexes = %v, want [4]", got)
	}
	if math.Abs(iv[4].Smoothed-22) > 0.5 {
		t.Fatalf("spike smoothed to %v, want ~22 (local trend)", iv[4].Smoothed)
	}
	if iv[4].Price != 40 {
		t.Fatalf("original price mutated: %v", iv[4].Price)
	}
	for i := range iv {
		if i != 4 && iv[i].Smoothed != iv[i].Price {
			t.Fatalf("index %d touched: %v != %v", i, iv[i].Smoothed, iv[i].Price)
		}
	}
}

// A level shift is a legitimate price movement: the asymmetry guard must keep
// the smoother away from the step edge.
func TestSmoothKeepsLevelShift(t *testing.T) {
	iv := fromPrices(30, 30, 30, 30, 30, 30, 20, 20, 20, 20, 20, 20)
	if got := Smooth(iv, SmootherConfig{}); len(got) != 0 {
		t.Fatalf("level shift must survive, smoothed %v", got)
	}
}

// A ramp peak is the other trend-break shape the guard must preserve.
func TestSmoothKeepsRampPeak(t *testing.T) {
	iv := fromPrices(20, 22, 24, 26, 28, 30, 28, 26, 24, 22, 20, 18)
	if got := Smooth(iv, SmootherConfig{}); len(got) != 0 {
		t.Fatalf("ramp peak must survive, smoothed %v", got)
	}
}

func TestSmoothZigzagCluster(t *testing.T) {
	iv := fromPrices(20, 20, 20, 20, 30, 10, 30, 10, 20, 20, 20, 20)
	got := Smooth(iv, SmootherConfig{})
	want := []int{3, 4, 5, 6, 7, 8}
	if len(got) != len(want) {
		t.Fatalf("smoothed indexes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("smoothed indexes = %v, want %v", got, want)
		}
	}
	for _, i := range []int{4, 5, 6, 7} {
		if math.Abs(iv[i].Smoothed-20) > 0.5 {
			t.Fatalf("cluster point %d smoothed to %v, want ~20", i, iv[i].Smoothed)
		}
	}
}

// Sub-cent jitter beside a spike and a level step produces small alternating
// diffs next to one large one. Those pairs are not comparable in magnitude and
// must not chain into a cluster: only the spike itself gets smoothed.
func TestSmoothJitterBesideStepNotCluster(t *testing.T) {
	iv := fromPrices(19, 19.2, 19.1, 19.3, 35, 19.2, 19.4, 19.3, 29, 29.5, 30, 30.5, 31, 31.5)
	got := Smooth(iv, SmootherConfig{})
	if len(got) != 1 || got[0] != 4 {
		t.Fatalf("smoothed indexes = %v, want [4]", got)
	}
	if iv[8].Smoothed != 29 {
		t.Fatalf("step interval dragged to %v, want 29 untouched", iv[8].Smoothed)
	}
}

func TestSmoothShortSeries(t *testing.T) {
	iv := fromPrices(10, 100, 10, 100, 10, 100)
	if got := Smooth(iv, SmootherConfig{}); got != nil {
		t.Fatalf("series shorter than the window must pass through, got %v", got)
	}
	for i := range iv {
		if iv[i].Smoothed != iv[i].Price {
			t.Fatalf("index %d touched on short series", i)
		}
	}
}

func TestSmoothEdgesUntouched(t *testing.T) {
	iv := fromPrices(40, 20, 20, 20, 20, 20, 20, 20, 20, 40)
	Smooth(iv, SmootherConfig{})
	if iv[0].Smoothed != 40 || iv[9].Smoothed != 40 {
		t.Fatalf("edge intervals must never be smoothed: %v %v", iv[0].Smoothed, iv[9].Smoothed)
	}
}

func TestSmoothIdempotentValues(t *testing.T) {
	a := fromPrices(20, 20.5, 21, 21.5, 40, 22.5, 23, 23.5, 24, 24.5)
	b := fromPrices(20, 20.5, 21, 21.5, 40, 22.5, 23, 23.5, 24, 24.5)
	Smooth(a, SmootherConfig{})
	Smooth(b, SmootherConfig{})
	Smooth(b, SmootherConfig{}) // second run starts from pristine prices again
	for i := range a {
		if a[i].Smoothed != b[i].Smoothed {
			t.Fatalf("index %d differs after repeat: %v vs %v", i, a[i].Smoothed, b[i].Smoothed)
		}
	}
}
