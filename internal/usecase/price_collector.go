package usecase

import (
	"context"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
	mid "GridPulse/internal/middleware"
)

// PriceCollector consumes the provider price stream and feeds updates to the
// ingest pipeline. It also tees every update into the day assembler so a day
// can be detected the moment its curve completes.
type PriceCollector struct {
	stream    drepo.PriceStream
	proc      *IntervalProcessor
	assembler *DayAssembler
	metrics   drepo.Metrics
	pipe      *mid.IngestPipeline
}

// NewPriceCollector creates a new PriceCollector instance.
func NewPriceCollector(stream drepo.PriceStream, proc *IntervalProcessor, assembler *DayAssembler, metrics drepo.Metrics, pipe *mid.IngestPipeline) *PriceCollector {
	return &PriceCollector{stream: stream, proc: proc, assembler: assembler, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the provider stream is connected.
func (c *PriceCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *PriceCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	upCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, upCh, errCh)
	return nil
}

func (c *PriceCollector) consume(ctx context.Context, upCh <-chan *models.PriceUpdate, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case u := <-upCh:
			if u == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, u)
			} else {
				_ = c.proc.Process(ctx, u)
			}
			if c.assembler != nil {
				c.assembler.Offer(ctx, u)
			}
			c.metrics.RecordLastPrice(u.Zone, u.Price)
		}
	}
}

func (c *PriceCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying IntervalProcessor for lifecycle management.
func (c *PriceCollector) Processor() *IntervalProcessor { return c.proc }

// Shutdown stops pipeline and closes stream.
func (c *PriceCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
