package middleware

import (
	"context"
	"fmt"
	"testing"
	"time"

	"GridPulse/internal/domain/models"
)

type recordingMetrics struct {
	errors []string
}

func (m *recordingMetrics) RecordDayComputed(zone, direction, outcome string) {}
func (m *recordingMetrics) RecordPeriods(zone, direction string, n int)       {}
func (m *recordingMetrics) RecordRelaxAttempts(n int)                         {}
func (m *recordingMetrics) RecordDegenerateDay(zone string)                   {}
func (m *recordingMetrics) RecordCacheOp(result string)                       {}
func (m *recordingMetrics) RecordIntervalsStored(backend, zone string, n int) {}
func (m *recordingMetrics) RecordError(kind string)                           { m.errors = append(m.errors, kind) }
func (m *recordingMetrics) RecordLastPrice(zone string, price float64)        {}
func (m *recordingMetrics) RecordLatency(op string, seconds float64)          {}

type countingProc struct {
	calls int
	fail  bool
}

func (p *countingProc) Process(ctx context.Context, u *models.PriceUpdate) error {
	p.calls++
	if p.fail {
		return fmt.Errorf("downstream unavailable")
	}
	return nil
}

func update(zone string) *models.PriceUpdate {
	return &models.PriceUpdate{Zone: zone, StartsAt: time.Now().Unix(), Duration: 3600, Price: 25}
}

func TestProcessRejectsInvalidUpdates(t *testing.T) {
	proc := &countingProc{}
	p := NewIngestPipeline(proc, &recordingMetrics{})

	cases := []*models.PriceUpdate{
		nil,
		{Zone: "", StartsAt: 1, Duration: 3600},
		{Zone: "NO1", StartsAt: 0, Duration: 3600},
		{Zone: "NO1", StartsAt: 1, Duration: -1},
	}
	for i, u := range cases {
		if err := p.Process(context.Background(), u); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if proc.calls != 0 {
		t.Fatalf("invalid updates reached processor")
	}
}

func TestProcessThrottlesPerZone(t *testing.T) {
	proc := &countingProc{}
	p := NewIngestPipeline(proc, &recordingMetrics{}, WithMaxRPS(1))

	if err := p.Process(context.Background(), update("NO1")); err != nil {
		t.Fatalf("first update: %v", err)
	}
	// immediate second update on the same zone is dropped silently
	if err := p.Process(context.Background(), update("NO1")); err != nil {
		t.Fatalf("throttled update should not error: %v", err)
	}
	if proc.calls != 1 {
		t.Fatalf("processor calls = %d, want 1", proc.calls)
	}
	// a different zone has its own budget
	if err := p.Process(context.Background(), update("SE3")); err != nil {
		t.Fatalf("other zone: %v", err)
	}
	if proc.calls != 2 {
		t.Fatalf("processor calls = %d, want 2", proc.calls)
	}
}

func TestProcessBuffersOnDownstreamError(t *testing.T) {
	proc := &countingProc{fail: true}
	m := &recordingMetrics{}
	p := NewIngestPipeline(proc, m, WithBufferSize(4))

	if err := p.Process(context.Background(), update("NO1")); err == nil {
		t.Fatalf("expected downstream error")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("buffered = %d, want 1", len(p.bufCh))
	}
	found := false
	for _, e := range m.errors {
		if e == "pipeline_process" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected pipeline_process error metric, got %v", m.errors)
	}
}

func TestTransformRunsBeforeProcessing(t *testing.T) {
	proc := &countingProc{}
	p := NewIngestPipeline(proc, &recordingMetrics{},
		WithTransform(func(u *models.PriceUpdate) *models.PriceUpdate {
			if u.StartsAt > 1e11 { // ms to s
				u.StartsAt = u.StartsAt / 1000
			}
			return u
		}))

	u := update("NO1")
	u.StartsAt = u.StartsAt * 1000
	if err := p.Process(context.Background(), u); err != nil {
		t.Fatalf("process: %v", err)
	}
	if u.StartsAt > 1e11 {
		t.Fatalf("transform not applied")
	}
	if proc.calls != 1 {
		t.Fatalf("processor calls = %d, want 1", proc.calls)
	}
}
