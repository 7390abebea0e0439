package portrait

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cristianadrielbraun/tonttukioski/internal/metrics"
)

type instrumented struct {
	next     Provider
	strategy Strategy
	logger   zerolog.Logger
}

// Instrument wraps p with logging and Prometheus metrics.
func Instrument(p Provider, strategy Strategy, logger zerolog.Logger) Provider {
	return &instrumented{
		next:     p,
		strategy: strategy,
		logger:   logger.With().Str("strategy", string(strategy)).Logger(),
	}
}

func (i *instrumented) Transform(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := i.next.Transform(ctx, req)
	elapsed := time.Since(start)

	metrics.TransformDuration.WithLabelValues(string(i.strategy)).Observe(elapsed.Seconds())
	if err != nil {
		metrics.TransformTotal.WithLabelValues(string(i.strategy), "failed").Inc()
		i.logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("transformation failed")
		return Result{}, err
	}
	metrics.TransformTotal.WithLabelValues(string(i.strategy), "ok").Inc()
	i.logger.Info().Dur("elapsed", elapsed).Str("record_id", res.RecordID).Msg("transformation finished")
	return res, nil
}
