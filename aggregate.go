package voluba

import (
	"fmt"
	"math"
	"time"
)

// AggregatedBar is the consolidated bar of one timeframe bucket.
type AggregatedBar struct {
	BucketStart int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	BuyVolume   float64
	SellVolume  float64

	// CVDByExchange holds the bucket's volume delta of every exchange
	// reporting in a contributing minute, regardless of the exchange
	// selection.
	CVDByExchange map[string]float64
}

// Delta returns the signed volume delta of the bucket.
func (ab *AggregatedBar) Delta() float64 {
	return ab.BuyVolume - ab.SellVolume
}

func (ab *AggregatedBar) String() string {
	return fmt.Sprintf(
		"time: %v, open: %v, close: %v, volume: %v, delta: %v",
		time.Unix(ab.BucketStart, 0).UTC().Format(time.RFC3339),
		ab.Open,
		ab.Close,
		ab.Volume,
		ab.Delta(),
	)
}

// minuteSummary is a single minute folded across the wanted exchanges.
type minuteSummary struct {
	open, high, low, close        float64
	volume, buyVolume, sellVolume float64
	deltaByExchange               map[string]float64
}

// summarizeMinute averages open and close over the wanted exchanges
// present in the minute and takes the extreme high and low. It returns
// false when none of the wanted exchanges reported.
func summarizeMinute(
	minuteBar *MinuteBar,
	wantedExchanges ExchangeSet,
) (*minuteSummary, bool) {
	summary := &minuteSummary{
		high:            math.Inf(-1),
		low:             math.Inf(1),
		deltaByExchange: make(map[string]float64),
	}

	var openSum, closeSum float64
	count := 0

	for _, exchange := range minuteBar.Exchanges() {
		bar := minuteBar.BarsByExchange[exchange]

		summary.deltaByExchange[exchange] = bar.Delta()

		if !wantedExchanges.Contains(exchange) {
			continue
		}

		count++
		openSum += bar.Open
		closeSum += bar.Close
		summary.high = math.Max(summary.high, bar.High)
		summary.low = math.Min(summary.low, bar.Low)
		summary.volume += bar.Volume
		summary.buyVolume += bar.BuyVolume
		summary.sellVolume += bar.SellVolume
	}

	if count == 0 {
		return nil, false
	}

	summary.open = openSum / float64(count)
	summary.close = closeSum / float64(count)

	return summary, true
}

// Aggregate folds ordered minute bars into buckets of the timeframe.
// Minutes without any wanted exchange are skipped, so buckets made only
// of such minutes are not emitted. Buckets come out in ascending order.
func Aggregate(minuteBars MinuteBars, timeframe Timeframe) []*AggregatedBar {
	buckets := make([]*AggregatedBar, 0)

	if timeframe.Validate() != nil {
		return buckets
	}

	var current *AggregatedBar

	for _, minuteBar := range minuteBars {
		summary, ok := summarizeMinute(minuteBar, timeframe.WantedExchanges)
		if !ok {
			continue
		}

		bucketStart := timeframe.BucketStart(minuteBar.Timestamp)

		if current == nil || current.BucketStart != bucketStart {
			current = &AggregatedBar{
				BucketStart:   bucketStart,
				Open:          summary.open,
				High:          summary.high,
				Low:           summary.low,
				CVDByExchange: make(map[string]float64),
			}
			buckets = append(buckets, current)
		}

		current.Close = summary.close
		current.High = math.Max(current.High, summary.high)
		current.Low = math.Min(current.Low, summary.low)
		current.Volume += summary.volume
		current.BuyVolume += summary.buyVolume
		current.SellVolume += summary.sellVolume

		for exchange, delta := range summary.deltaByExchange {
			current.CVDByExchange[exchange] += delta
		}
	}

	return buckets
}
