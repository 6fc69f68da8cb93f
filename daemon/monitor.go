package daemon

import (
	"context"
	"fmt"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"time"
)

type MonitorConfig struct {
	// PollInterval is the period between two fetches of fresh minutes.
	PollInterval time.Duration
	// PollWindow is how far back each poll looks; minutes older than the
	// store tail are dropped anyway.
	PollWindow time.Duration
	// PollTimeout terminates the monitor when no poll succeeded for
	// that long.
	PollTimeout time.Duration
	// HistoryDays is the number of full days preceding today loaded
	// at startup.
	HistoryDays int
}

func DefaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		PollInterval: 1 * time.Second,
		PollWindow:   3 * time.Minute,
		PollTimeout:  1 * time.Minute,
		HistoryDays:  1,
	}
}

// Chart is the part of voluba.Chart the monitor feeds.
type Chart interface {
	Ingest(minuteBars voluba.MinuteBars) *voluba.Snapshot
}

// RefreshMonitor seeds the chart with history and keeps refreshing it with
// minutes polled from the sources. Every refresh is persisted to the
// repository and published to all sinks.
type RefreshMonitor struct {
	logger     voluba.Logger
	config     *MonitorConfig
	chart      Chart
	sources    []voluba.ExchangeBarService
	repository voluba.MinuteBarRepository
	sinks      []voluba.SeriesSink
	now        func() time.Time
	errChan    chan error
}

func RunRefreshMonitor(
	ctx context.Context,
	logger voluba.Logger,
	config *MonitorConfig,
	chart Chart,
	sources []voluba.ExchangeBarService,
	repository voluba.MinuteBarRepository,
	sinks []voluba.SeriesSink,
) *RefreshMonitor {
	monitor := newRefreshMonitor(logger, config, chart, sources, repository, sinks)

	go monitor.loop(ctx)

	return monitor
}

func newRefreshMonitor(
	logger voluba.Logger,
	config *MonitorConfig,
	chart Chart,
	sources []voluba.ExchangeBarService,
	repository voluba.MinuteBarRepository,
	sinks []voluba.SeriesSink,
) *RefreshMonitor {
	return &RefreshMonitor{
		logger:     logger,
		config:     config,
		chart:      chart,
		sources:    sources,
		repository: repository,
		sinks:      sinks,
		now:        time.Now,
		errChan:    make(chan error, 1),
	}
}

func (rm *RefreshMonitor) loop(ctx context.Context) {
	if err := rm.loadHistory(ctx); err != nil {
		rm.errChan <- fmt.Errorf("failed to load history: [%v]", err)
		return
	}

	pollTimeoutTimer := time.NewTimer(rm.config.PollTimeout)
	defer pollTimeoutTimer.Stop()

	ticker := time.NewTicker(rm.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := rm.poll(ctx); err != nil {
				rm.logger.Warningf("poll failed: [%v]", err)
				continue
			}

			if !pollTimeoutTimer.Stop() {
				<-pollTimeoutTimer.C
			}
			pollTimeoutTimer.Reset(rm.config.PollTimeout)
		case <-pollTimeoutTimer.C:
			rm.errChan <- fmt.Errorf("poll timeout expiration")
			return
		case <-ctx.Done():
			return
		}
	}
}

func (rm *RefreshMonitor) loadHistory(ctx context.Context) error {
	end := rm.now().UTC()
	start := end.Truncate(24*time.Hour).AddDate(0, 0, -rm.config.HistoryDays)

	stored, err := rm.repository.MinuteBars(ctx, start, end)
	if err != nil {
		return fmt.Errorf("could not read stored minute bars: [%v]", err)
	}

	rm.logger.Debugf("read [%v] stored minute bars", len(stored))

	fetched, err := voluba.FetchMinuteBars(ctx, rm.logger, rm.sources, start, end)
	if err != nil {
		return err
	}

	rm.logger.Infof(
		"fetched [%v] historical minute bars since [%v]",
		len(fetched),
		start.Format(time.RFC3339),
	)

	rm.refresh(ctx, voluba.MergeMinuteBars(stored, fetched))

	return nil
}

func (rm *RefreshMonitor) poll(ctx context.Context) error {
	end := rm.now().UTC()
	start := end.Add(-rm.config.PollWindow)

	minuteBars, err := voluba.FetchMinuteBars(ctx, rm.logger, rm.sources, start, end)
	if err != nil {
		return err
	}

	rm.refresh(ctx, minuteBars)

	return nil
}

func (rm *RefreshMonitor) refresh(ctx context.Context, minuteBars voluba.MinuteBars) {
	if len(minuteBars) == 0 {
		return
	}

	snapshot := rm.chart.Ingest(minuteBars)

	if err := rm.repository.SaveMinuteBars(ctx, minuteBars...); err != nil {
		rm.logger.Errorf("could not save minute bars: [%v]", err)
	}

	for _, sink := range rm.sinks {
		if err := sink.PublishSeries(ctx, snapshot); err != nil {
			rm.logger.Errorf("could not publish series: [%v]", err)
		}
	}
}

func (rm *RefreshMonitor) ErrChan() <-chan error {
	return rm.errChan
}
