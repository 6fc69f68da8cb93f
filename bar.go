package voluba

import (
	"fmt"
	"sort"
	"time"
)

// MinuteSeconds is the width of a single minute bar.
const MinuteSeconds = 60

// ExchangeBar is the one-minute OHLCV record reported by a single exchange.
// BuyVolume and SellVolume are expected to sum up to Volume but it is
// not enforced.
type ExchangeBar struct {
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
	BuyVolume  float64 `json:"buyVolume"`
	SellVolume float64 `json:"sellVolume"`
}

// Delta returns the signed volume delta of the bar.
func (eb *ExchangeBar) Delta() float64 {
	return eb.BuyVolume - eb.SellVolume
}

func (eb *ExchangeBar) String() string {
	return fmt.Sprintf(
		"open: %v, high: %v, low: %v, close: %v, volume: %v, delta: %v",
		eb.Open,
		eb.High,
		eb.Low,
		eb.Close,
		eb.Volume,
		eb.Delta(),
	)
}

// MinuteBar groups bars reported by all exchanges for the same minute.
// The set of exchanges may differ from minute to minute.
type MinuteBar struct {
	Timestamp      int64                   `json:"tstamp"`
	BarsByExchange map[string]*ExchangeBar `json:"barsByExchange"`
}

func NewMinuteBar(timestamp int64) *MinuteBar {
	return &MinuteBar{
		Timestamp:      timestamp,
		BarsByExchange: make(map[string]*ExchangeBar),
	}
}

func (mb *MinuteBar) Time() time.Time {
	return time.Unix(mb.Timestamp, 0).UTC()
}

// Exchanges returns identifiers of exchanges reporting the minute, sorted
// to keep floating point accumulation order stable.
func (mb *MinuteBar) Exchanges() []string {
	exchanges := make([]string, 0, len(mb.BarsByExchange))
	for exchange, bar := range mb.BarsByExchange {
		if bar == nil {
			continue
		}
		exchanges = append(exchanges, exchange)
	}

	sort.Strings(exchanges)

	return exchanges
}

func (mb *MinuteBar) String() string {
	return fmt.Sprintf(
		"time: %v, exchanges: %v",
		mb.Time().Format(time.RFC3339),
		mb.Exchanges(),
	)
}

// MinuteBars is a sequence of minute bars. Once passed through Ingest it is
// strictly increasing by timestamp.
type MinuteBars []*MinuteBar

// Last returns the most recent minute bar or nil if the sequence is empty.
func (mbs MinuteBars) Last() *MinuteBar {
	if len(mbs) == 0 {
		return nil
	}

	return mbs[len(mbs)-1]
}

// Since returns the suffix of an ordered sequence starting with the first
// bar whose timestamp is not lower than the given one.
func (mbs MinuteBars) Since(timestamp int64) MinuteBars {
	index := sort.Search(len(mbs), func(i int) bool {
		return mbs[i].Timestamp >= timestamp
	})

	return mbs[index:]
}

// Between returns bars of an ordered sequence falling in [start, end].
func (mbs MinuteBars) Between(start, end time.Time) MinuteBars {
	since := mbs.Since(start.Unix())

	index := sort.Search(len(since), func(i int) bool {
		return since[i].Timestamp > end.Unix()
	})

	return since[:index]
}

// MergeMinuteBars folds bars coming from several sources into one sequence
// keyed by timestamp. When two inputs report the same exchange for the same
// minute, the later input wins. The result is sorted by timestamp.
func MergeMinuteBars(batches ...MinuteBars) MinuteBars {
	byTimestamp := make(map[int64]*MinuteBar)

	for _, batch := range batches {
		for _, minuteBar := range batch {
			if minuteBar == nil {
				continue
			}

			merged, ok := byTimestamp[minuteBar.Timestamp]
			if !ok {
				merged = NewMinuteBar(minuteBar.Timestamp)
				byTimestamp[minuteBar.Timestamp] = merged
			}

			for exchange, bar := range minuteBar.BarsByExchange {
				if bar == nil {
					continue
				}
				merged.BarsByExchange[exchange] = bar
			}
		}
	}

	result := make(MinuteBars, 0, len(byTimestamp))
	for _, minuteBar := range byTimestamp {
		result = append(result, minuteBar)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result
}
