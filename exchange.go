package voluba

import (
	"context"
	"fmt"
	"time"
)

// ExchangeBarService is a source of minute bars. A source may report one
// exchange or many of them.
type ExchangeBarService interface {
	SourceName() string

	// MinuteBars returns the bars of minutes starting in [start, end].
	MinuteBars(ctx context.Context, start, end time.Time) (MinuteBars, error)
}

// MinuteBarRepository persists raw minute bars so the history survives
// restarts.
type MinuteBarRepository interface {
	SaveMinuteBars(ctx context.Context, minuteBars ...*MinuteBar) error

	MinuteBars(ctx context.Context, start, end time.Time) (MinuteBars, error)
}

// FetchMinuteBars queries all sources and merges their answers. A failing
// source is logged and skipped; an error is returned only when every
// source failed.
func FetchMinuteBars(
	ctx context.Context,
	logger Logger,
	sources []ExchangeBarService,
	start, end time.Time,
) (MinuteBars, error) {
	batches := make([]MinuteBars, 0, len(sources))
	var failed []string

	for _, source := range sources {
		minuteBars, err := source.MinuteBars(ctx, start, end)
		if err != nil {
			logger.WithField("source", source.SourceName()).Warningf(
				"could not fetch minute bars: [%v]",
				err,
			)
			failed = append(failed, source.SourceName())
			continue
		}

		batches = append(batches, minuteBars)
	}

	merged := MergeMinuteBars(batches...)

	if len(sources) > 0 && len(failed) == len(sources) {
		return nil, fmt.Errorf("all sources failed: %v", failed)
	}

	return merged, nil
}
