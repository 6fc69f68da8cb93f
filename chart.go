package voluba

import (
	"sync"
	"time"
)

// Chart owns the minute-bar store and the series derived from it. Every
// update is computed on copies and committed only once the whole cycle is
// done, so readers never observe a half-applied refresh.
type Chart struct {
	logger    Logger
	idService IDService

	mutex    sync.RWMutex
	store    MinuteBars
	series   *Series
	snapshot *Snapshot
	sequence uint64
}

func NewChart(
	logger Logger,
	idService IDService,
	timeframe Timeframe,
) (*Chart, error) {
	if err := timeframe.Validate(); err != nil {
		return nil, err
	}

	chart := &Chart{
		logger:    logger,
		idService: idService,
		store:     make(MinuteBars, 0),
		series:    NewSeries(timeframe.copy()),
	}

	chart.snapshot = chart.newSnapshot(chart.series)

	return chart, nil
}

// Ingest applies a batch of minute bars to the store and refreshes the
// series incrementally.
func (c *Chart) Ingest(minuteBars MinuteBars) *Snapshot {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	store := Ingest(c.store, minuteBars)
	series := Refresh(c.series, store, minuteBars, c.series.Timeframe())

	c.commit(store, series)

	c.logger.Debugf(
		"ingested [%v] minute bars; store size [%v], series size [%v]",
		len(minuteBars),
		len(store),
		series.Len(),
	)

	return c.snapshot
}

// Configure switches the chart to a new timeframe. The series is rebuilt
// from the whole store with all accumulators reset.
func (c *Chart) Configure(timeframe Timeframe) (*Snapshot, error) {
	if err := timeframe.Validate(); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	series := Build(c.store, timeframe.copy())

	c.commit(c.store, series)

	c.logger.Infof(
		"chart configured with timeframe [%v]; series size [%v]",
		timeframe,
		series.Len(),
	)

	return c.snapshot, nil
}

func (c *Chart) commit(store MinuteBars, series *Series) {
	c.store = store
	c.series = series
	c.snapshot = c.newSnapshot(series)
}

func (c *Chart) newSnapshot(series *Series) *Snapshot {
	c.sequence++
	return series.Snapshot(c.idService.NewID(), c.sequence, time.Now().UTC())
}

// Snapshot returns the series state after the last committed update.
func (c *Chart) Snapshot() *Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.snapshot
}

func (c *Chart) Timeframe() Timeframe {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.series.Timeframe()
}

func (c *Chart) MinuteBars() MinuteBars {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snapshot := make(MinuteBars, len(c.store))
	copy(snapshot, c.store)

	return snapshot
}
