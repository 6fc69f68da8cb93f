package inmem

import (
	"context"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"sync"
	"time"
)

// DefaultWindowSize keeps two days of minutes.
const DefaultWindowSize = 2 * 24 * 60

type MinuteBarRepository struct {
	minuteBarsMutex sync.RWMutex
	minuteBars      voluba.MinuteBars

	windowSize int
}

func NewMinuteBarRepository(windowSize int) *MinuteBarRepository {
	return &MinuteBarRepository{
		minuteBars: make(voluba.MinuteBars, 0),
		windowSize: windowSize,
	}
}

// SaveMinuteBars follows the store rules: the tail minute is overwritten,
// newer minutes are appended and older ones are ignored.
func (mbr *MinuteBarRepository) SaveMinuteBars(
	_ context.Context,
	minuteBars ...*voluba.MinuteBar,
) error {
	mbr.minuteBarsMutex.Lock()
	defer mbr.minuteBarsMutex.Unlock()

	mbr.minuteBars = voluba.Ingest(mbr.minuteBars, minuteBars)

	// remove oldest minutes if the window size has been exceeded
	if overflow := len(mbr.minuteBars) - mbr.windowSize; overflow > 0 {
		copy(mbr.minuteBars, mbr.minuteBars[overflow:])
		for index := len(mbr.minuteBars) - overflow; index < len(mbr.minuteBars); index++ {
			mbr.minuteBars[index] = nil
		}
		mbr.minuteBars = mbr.minuteBars[:len(mbr.minuteBars)-overflow]
	}

	return nil
}

func (mbr *MinuteBarRepository) MinuteBars(
	_ context.Context,
	start, end time.Time,
) (voluba.MinuteBars, error) {
	mbr.minuteBarsMutex.RLock()
	defer mbr.minuteBarsMutex.RUnlock()

	between := mbr.minuteBars.Between(start, end)

	snapshot := make(voluba.MinuteBars, len(between))
	copy(snapshot, between)

	return snapshot, nil
}

func (mbr *MinuteBarRepository) Len() int {
	mbr.minuteBarsMutex.RLock()
	defer mbr.minuteBarsMutex.RUnlock()

	return len(mbr.minuteBars)
}
