package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/observability"
)

// ErrNotReady is reported by the readiness probe until a batch of records has
// been published.
var ErrNotReady = errors.New("no exposure records published yet")

// BatchExtractor reads up to batchSize raw track messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer evaluates one track message into exposure records.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) ([]domain.ExposureRecord, error)
}

// BatchLoader writes exposure records to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, records []domain.ExposureRecord) error
}

// Pipeline consumes storm tracks, evaluates them against query points, and
// publishes the resulting exposure records. One message is one storm and
// yields one record per point.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New wires a Pipeline. batchSize bounds how many storms are read per cycle.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// Ready reports whether at least one batch has been loaded.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// CheckReadiness implements the shared readiness probe.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.Ready() {
		return ErrNotReady
	}
	return nil
}

// Run consumes track messages until the context is cancelled. Extract and
// load failures are retried with exponential backoff; a message that cannot
// be evaluated is logged, counted, and committed so it is not redelivered.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	retry := newRetryDelay(initialRetryDelay, maxRetryDelay)
	for ctx.Err() == nil {
		if !p.step(ctx, retry) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

const (
	initialRetryDelay = 200 * time.Millisecond
	maxRetryDelay     = 5 * time.Second
)

// step handles one batch of storms. It returns false once the pipeline
// should stop.
func (p *Pipeline) step(ctx context.Context, retry *retryDelay) bool {
	started := time.Now()

	msgs, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	switch {
	case err != nil && ctx.Err() != nil:
		return false
	case err != nil:
		p.logger.Error("extract batch failed", "error", err)
		return retry.wait(ctx)
	case len(msgs) == 0:
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(msgs)))
	p.metrics.BatchSize.Observe(float64(len(msgs)))
	retry.reset()

	out, ok := p.evaluate(ctx, msgs)
	if !ok {
		return false
	}

	if len(out.records) > 0 {
		if err := p.loader.LoadBatch(ctx, out.records); err != nil {
			p.logger.Error("load batch failed", "error", err, "records", len(out.records), "storms", len(out.handled))
			// Offsets stay uncommitted so the storms are redelivered.
			return retry.wait(ctx)
		}
		p.metrics.MessagesProduced.Add(float64(len(out.records)))
	}

	for _, msg := range out.handled {
		p.commit(ctx, msg)
	}

	if len(out.records) > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(started).Seconds())
		p.ready.Store(true)
	}
	return true
}

// evaluation is the outcome of transforming one batch: the records to
// publish and the messages they came from.
type evaluation struct {
	records []domain.ExposureRecord
	handled []domain.RawEvent
}

// evaluate transforms every message in the batch. Messages that fail are
// committed immediately. It returns false if the context ended mid-batch.
func (p *Pipeline) evaluate(ctx context.Context, msgs []domain.RawEvent) (evaluation, bool) {
	out := evaluation{handled: make([]domain.RawEvent, 0, len(msgs))}
	for _, msg := range msgs {
		records, err := p.transformer.Transform(ctx, msg)
		if err == nil {
			out.records = append(out.records, records...)
			out.handled = append(out.handled, msg)
			continue
		}
		if ctx.Err() != nil {
			return out, false
		}
		p.logger.Warn("skipping track message",
			"error", err,
			"key", string(msg.Key),
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		p.metrics.TransformErrors.Inc()
		p.commit(ctx, msg)
	}
	return out, true
}

func (p *Pipeline) commit(ctx context.Context, msg domain.RawEvent) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

// retryDelay is a doubling delay capped at ceiling.
type retryDelay struct {
	initial, ceiling, next time.Duration
}

func newRetryDelay(initial, ceiling time.Duration) *retryDelay {
	return &retryDelay{initial: initial, ceiling: ceiling, next: initial}
}

func (r *retryDelay) reset() { r.next = r.initial }

// wait sleeps for the current delay and doubles it. It returns false if ctx
// ends first.
func (r *retryDelay) wait(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	t := time.NewTimer(r.next)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
	}
	r.next = min(r.next*2, r.ceiling)
	return true
}
