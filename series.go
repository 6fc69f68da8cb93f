package voluba

import (
	"sort"
)

const (
	VolumeColor    = "rgba(150,150,150,0.8)"
	BuyDeltaColor  = "rgba(38,166,154,0.8)"
	SellDeltaColor = "rgba(239,83,80,0.8)"
)

type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

type CandlePoint struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type ValuePoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

type VolumeDeltaPoint struct {
	Time      int64     `json:"time"`
	Value     float64   `json:"value"`
	Direction Direction `json:"direction"`
	Color     string    `json:"color,omitempty"`
}

// cumulativeSeries is a running sum emitted once per bucket. The base is
// the cumulative value as of the previous distinct bucket, so the last
// point can be rewritten as base + delta any number of times.
type cumulativeSeries struct {
	points []ValuePoint
	base   float64
}

func (cs *cumulativeSeries) total() float64 {
	if len(cs.points) == 0 {
		return 0
	}
	return cs.points[len(cs.points)-1].Value
}

func (cs *cumulativeSeries) put(time int64, delta float64) {
	last := len(cs.points) - 1

	switch {
	case last < 0 || time > cs.points[last].Time:
		cs.base = cs.total()
		cs.points = append(cs.points, ValuePoint{Time: time, Value: cs.base + delta})
	case time == cs.points[last].Time:
		cs.points[last] = ValuePoint{Time: time, Value: cs.base + delta}
	}
}

// dropFrom removes the tail point if it starts at or after the given time
// and rewinds the base to the point before the new tail.
func (cs *cumulativeSeries) dropFrom(time int64) {
	last := len(cs.points) - 1
	if last < 0 || cs.points[last].Time < time {
		return
	}

	cs.points = cs.points[:last]

	cs.base = 0
	if len(cs.points) >= 2 {
		cs.base = cs.points[len(cs.points)-2].Value
	}
}

func (cs *cumulativeSeries) clone() *cumulativeSeries {
	points := make([]ValuePoint, len(cs.points))
	copy(points, cs.points)
	return &cumulativeSeries{points: points, base: cs.base}
}

// Series holds the derived chart series of one timeframe together with
// the accumulator state needed to extend them incrementally.
type Series struct {
	timeframe Timeframe

	candles     []CandlePoint
	volume      []ValuePoint
	volumeDelta []VolumeDeltaPoint
	cvd         *cumulativeSeries
	exchangeCVD map[string]*cumulativeSeries

	// hasLastBucket is false until the first bucket is applied.
	hasLastBucket bool
	lastBucket    int64
}

func NewSeries(timeframe Timeframe) *Series {
	return &Series{
		timeframe:   timeframe,
		candles:     make([]CandlePoint, 0),
		volume:      make([]ValuePoint, 0),
		volumeDelta: make([]VolumeDeltaPoint, 0),
		cvd:         &cumulativeSeries{points: make([]ValuePoint, 0)},
		exchangeCVD: make(map[string]*cumulativeSeries),
	}
}

// Build computes the series from scratch, with every accumulator starting
// at zero.
func Build(minuteBars MinuteBars, timeframe Timeframe) *Series {
	series := NewSeries(timeframe)

	for _, bucket := range Aggregate(minuteBars, timeframe) {
		series.apply(bucket)
	}

	return series
}

// Refresh extends the prior series with minute bars that were just
// ingested into the store. The store must already contain them. Only the
// store tail from the open bucket onward is aggregated again: an equal
// bucket replaces the last point, a newer one is appended. The prior
// series is left untouched and the result is identical to what Build
// would produce for the whole store.
func Refresh(
	prior *Series,
	store MinuteBars,
	newMinuteBars MinuteBars,
	timeframe Timeframe,
) *Series {
	if timeframe.Validate() != nil {
		return NewSeries(timeframe)
	}

	if prior == nil || !prior.timeframe.Equal(timeframe) {
		return Build(store, timeframe)
	}

	if len(store) == 0 {
		return prior
	}

	var earliest int64
	found := false
	for _, minuteBar := range newMinuteBars {
		if minuteBar == nil {
			continue
		}

		if !found || minuteBar.Timestamp < earliest {
			earliest = minuteBar.Timestamp
			found = true
		}
	}

	if !found {
		return prior
	}

	from := timeframe.BucketStart(earliest)
	if prior.hasLastBucket && from < prior.lastBucket {
		// Buckets before the open one are already final.
		from = prior.lastBucket
	}

	buckets := Aggregate(store.Since(from), timeframe)

	series := prior.clone()

	// The open bucket may have lost every contributing minute when the
	// store tail was replaced.
	if series.hasLastBucket && series.lastBucket >= from &&
		(len(buckets) == 0 || buckets[0].BucketStart != series.lastBucket) {
		series.dropLast()
	}

	for _, bucket := range buckets {
		series.apply(bucket)
	}

	return series
}

func (s *Series) apply(bucket *AggregatedBar) {
	time := bucket.BucketStart

	candle := CandlePoint{
		Time:  time,
		Open:  bucket.Open,
		High:  bucket.High,
		Low:   bucket.Low,
		Close: bucket.Close,
	}
	volume := ValuePoint{Time: time, Value: bucket.Volume, Color: VolumeColor}
	volumeDelta := newVolumeDeltaPoint(time, bucket.BuyVolume, bucket.SellVolume)

	switch {
	case !s.hasLastBucket || time > s.lastBucket:
		s.candles = append(s.candles, candle)
		s.volume = append(s.volume, volume)
		s.volumeDelta = append(s.volumeDelta, volumeDelta)
	case time == s.lastBucket:
		last := len(s.candles) - 1
		s.candles[last] = candle
		s.volume[last] = volume
		s.volumeDelta[last] = volumeDelta

		// Exchanges gone from the replaced bucket lose their point.
		for exchange, exchangeSeries := range s.exchangeCVD {
			if _, ok := bucket.CVDByExchange[exchange]; !ok {
				exchangeSeries.dropFrom(time)
			}
		}
	default:
		return
	}

	s.cvd.put(time, bucket.Delta())

	for exchange, delta := range bucket.CVDByExchange {
		exchangeSeries, ok := s.exchangeCVD[exchange]
		if !ok {
			exchangeSeries = &cumulativeSeries{points: make([]ValuePoint, 0)}
			s.exchangeCVD[exchange] = exchangeSeries
		}

		exchangeSeries.put(time, delta)
	}

	s.hasLastBucket = true
	s.lastBucket = time
}

func (s *Series) dropLast() {
	if !s.hasLastBucket {
		return
	}

	last := len(s.candles) - 1
	s.candles = s.candles[:last]
	s.volume = s.volume[:last]
	s.volumeDelta = s.volumeDelta[:last]

	s.cvd.dropFrom(s.lastBucket)
	for _, exchangeSeries := range s.exchangeCVD {
		exchangeSeries.dropFrom(s.lastBucket)
	}

	s.hasLastBucket = last > 0
	s.lastBucket = 0
	if s.hasLastBucket {
		s.lastBucket = s.candles[last-1].Time
	}
}

func (s *Series) clone() *Series {
	candles := make([]CandlePoint, len(s.candles))
	copy(candles, s.candles)

	volume := make([]ValuePoint, len(s.volume))
	copy(volume, s.volume)

	volumeDelta := make([]VolumeDeltaPoint, len(s.volumeDelta))
	copy(volumeDelta, s.volumeDelta)

	exchangeCVD := make(map[string]*cumulativeSeries, len(s.exchangeCVD))
	for exchange, exchangeSeries := range s.exchangeCVD {
		exchangeCVD[exchange] = exchangeSeries.clone()
	}

	return &Series{
		timeframe:     s.timeframe,
		candles:       candles,
		volume:        volume,
		volumeDelta:   volumeDelta,
		cvd:           s.cvd.clone(),
		exchangeCVD:   exchangeCVD,
		hasLastBucket: s.hasLastBucket,
		lastBucket:    s.lastBucket,
	}
}

func (s *Series) Timeframe() Timeframe {
	return s.timeframe
}

// LastBucket returns the start of the most recent bucket, if any.
func (s *Series) LastBucket() (int64, bool) {
	return s.lastBucket, s.hasLastBucket
}

func (s *Series) Len() int {
	return len(s.candles)
}

func (s *Series) Candles() []CandlePoint {
	snapshot := make([]CandlePoint, len(s.candles))
	copy(snapshot, s.candles)
	return snapshot
}

func (s *Series) CVD() []ValuePoint {
	return s.cvd.clone().points
}

func (s *Series) Volume() []ValuePoint {
	snapshot := make([]ValuePoint, len(s.volume))
	copy(snapshot, s.volume)
	return snapshot
}

func (s *Series) VolumeDelta() []VolumeDeltaPoint {
	snapshot := make([]VolumeDeltaPoint, len(s.volumeDelta))
	copy(snapshot, s.volumeDelta)
	return snapshot
}

// Exchanges returns identifiers of exchanges having a CVD series.
func (s *Series) Exchanges() []string {
	exchanges := make([]string, 0, len(s.exchangeCVD))
	for exchange, exchangeSeries := range s.exchangeCVD {
		if len(exchangeSeries.points) == 0 {
			continue
		}
		exchanges = append(exchanges, exchange)
	}

	sort.Strings(exchanges)

	return exchanges
}

func (s *Series) ExchangeCVD(exchange string) []ValuePoint {
	exchangeSeries, ok := s.exchangeCVD[exchange]
	if !ok {
		return make([]ValuePoint, 0)
	}
	return exchangeSeries.clone().points
}

func newVolumeDeltaPoint(time int64, buyVolume, sellVolume float64) VolumeDeltaPoint {
	point := VolumeDeltaPoint{
		Time:      time,
		Value:     buyVolume - sellVolume,
		Direction: DirectionBuy,
		Color:     BuyDeltaColor,
	}

	if buyVolume <= sellVolume {
		point.Value = sellVolume - buyVolume
		point.Direction = DirectionSell
		point.Color = SellDeltaColor
	}

	return point
}
