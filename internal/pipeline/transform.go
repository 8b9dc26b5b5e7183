package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// ErrNoQueryPoints is returned when a track message carries no points and
// the service has none configured.
var ErrNoQueryPoints = errors.New("no query points to evaluate")

// Evaluator produces exposure records for a storm. *exposure.Evaluator
// implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, track domain.StormTrack, points []domain.QueryPoint) ([]domain.ExposureRecord, error)
}

// ExposureTransformer implements Transformer by decoding a track message and
// evaluating it against the message's points or the configured defaults.
type ExposureTransformer struct {
	evaluator Evaluator
	points    []domain.QueryPoint
	timeout   time.Duration
	logger    *slog.Logger
}

// NewTransformer creates an ExposureTransformer. A non-positive timeout
// leaves each storm bounded only by the caller's context.
func NewTransformer(evaluator Evaluator, points []domain.QueryPoint, timeout time.Duration, logger *slog.Logger) *ExposureTransformer {
	return &ExposureTransformer{
		evaluator: evaluator,
		points:    points,
		timeout:   timeout,
		logger:    logger,
	}
}

func (t *ExposureTransformer) Transform(ctx context.Context, raw domain.RawEvent) ([]domain.ExposureRecord, error) {
	track, points, err := domain.ParseTrackMessage(raw.Value)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		points = t.points
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("storm %s: %w", track.StormID, ErrNoQueryPoints)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	records, err := t.evaluator.Evaluate(ctx, track, points)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("track transformed",
		"storm_id", track.StormID,
		"observations", track.Len(),
		"records", len(records),
	)
	return records, nil
}
