package daemon

import (
	"context"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"time"
)

const monitorRestartBackoff = 10 * time.Second

// Controller keeps a refresh monitor running and restarts it after
// a failure.
type Controller struct {
	logger     voluba.Logger
	config     *MonitorConfig
	chart      Chart
	sources    []voluba.ExchangeBarService
	repository voluba.MinuteBarRepository
	sinks      []voluba.SeriesSink

	restartBackoff time.Duration
}

func NewController(
	logger voluba.Logger,
	config *MonitorConfig,
	chart Chart,
	sources []voluba.ExchangeBarService,
	repository voluba.MinuteBarRepository,
	sinks []voluba.SeriesSink,
) *Controller {
	sourceNames := make([]string, len(sources))
	for i, source := range sources {
		sourceNames[i] = source.SourceName()
	}

	return &Controller{
		logger: logger.WithFields(map[string]interface{}{
			"component": "daemon",
			"sources":   sourceNames,
		}),
		config:         config,
		chart:          chart,
		sources:        sources,
		repository:     repository,
		sinks:          sinks,
		restartBackoff: monitorRestartBackoff,
	}
}

// Run blocks until the context is done.
func (c *Controller) Run(ctx context.Context) error {
	for {
		c.runMonitor(ctx)

		select {
		case <-time.After(c.restartBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) runMonitor(ctx context.Context) {
	c.logger.Infof("running refresh monitor")
	defer c.logger.Infof("terminating refresh monitor")

	monitorCtx, cancelMonitorCtx := context.WithCancel(ctx)
	defer cancelMonitorCtx()

	monitor := RunRefreshMonitor(
		monitorCtx,
		c.logger,
		c.config,
		c.chart,
		c.sources,
		c.repository,
		c.sinks,
	)

	select {
	case err := <-monitor.ErrChan():
		c.logger.Errorf("refresh monitor error: [%v]", err)
	case <-monitorCtx.Done():
		c.logger.Infof("monitor context is done")
	}
}
