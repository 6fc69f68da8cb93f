package voluba

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestRefresh_ReplacesEqualBucketAndAppendsNewer(t *testing.T) {
	timeframe := NewTimeframe(60, "A")

	store := Ingest(nil, MinuteBars{minute(0, "A", bar(100, 101, 20, 15))})
	series := Build(store, timeframe)

	assertValuePoints(t, "initial cvd", []ValuePoint{{Time: 0, Value: 10}}, series.CVD())

	update := MinuteBars{minute(0, "A", bar(100, 102, 24, 18))}
	store = Ingest(store, update)
	series = Refresh(series, store, update, timeframe)

	assertValuePoints(t, "replaced cvd", []ValuePoint{{Time: 0, Value: 12}}, series.CVD())

	next := MinuteBars{minute(60, "A", bar(102, 103, 9, 7))}
	store = Ingest(store, next)
	series = Refresh(series, store, next, timeframe)

	assertValuePoints(
		t,
		"appended cvd",
		[]ValuePoint{{Time: 0, Value: 12}, {Time: 60, Value: 17}},
		series.CVD(),
	)

	stale := MinuteBars{minute(0, "A", bar(1, 1, 100, 100))}
	store = Ingest(store, stale)
	series = Refresh(series, store, stale, timeframe)

	assertValuePoints(
		t,
		"cvd after stale bar",
		[]ValuePoint{{Time: 0, Value: 12}, {Time: 60, Value: 17}},
		series.CVD(),
	)
}

func TestRefresh_ReplacesPartialBucket(t *testing.T) {
	timeframe := NewTimeframe(300, "A")

	store := Ingest(nil, MinuteBars{
		minute(0, "A", bar(100, 101, 10, 6)),
		minute(60, "A", bar(101, 102, 10, 6)),
	})
	series := Build(store, timeframe)

	update := MinuteBars{minute(120, "A", bar(102, 99, 10, 6))}
	store = Ingest(store, update)
	series = Refresh(series, store, update, timeframe)

	expectedCandles := []CandlePoint{{Time: 0, Open: 100, High: 103, Low: 98, Close: 99}}
	if !reflect.DeepEqual(expectedCandles, series.Candles()) {
		t.Errorf(
			"unexpected candles\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expectedCandles,
			series.Candles(),
		)
	}

	assertValuePoints(
		t,
		"volume",
		[]ValuePoint{{Time: 0, Value: 30, Color: VolumeColor}},
		series.Volume(),
	)
	assertValuePoints(t, "cvd", []ValuePoint{{Time: 0, Value: 6}}, series.CVD())
}

func TestRefresh_DropsBucketLosingAllWantedExchanges(t *testing.T) {
	timeframe := NewTimeframe(60, "A")

	store := Ingest(nil, MinuteBars{
		minute(0, "A", bar(100, 101, 10, 6)),
		minute(60, "A", bar(101, 102, 10, 8)),
	})
	series := Build(store, timeframe)

	update := MinuteBars{minute(60, "B", bar(101, 102, 10, 1))}
	store = Ingest(store, update)
	series = Refresh(series, store, update, timeframe)

	assertSeriesEqual(t, Build(store, timeframe), series)

	if last, ok := series.LastBucket(); !ok || last != 0 {
		t.Errorf(
			"unexpected last bucket\n"+
				"expected: [%v]\n"+
				"actual:   [%v, %v]",
			0,
			last,
			ok,
		)
	}

	next := MinuteBars{minute(120, "A", bar(102, 103, 10, 3))}
	store = Ingest(store, next)
	series = Refresh(series, store, next, timeframe)

	assertSeriesEqual(t, Build(store, timeframe), series)
}

func TestRefresh_LeavesPriorSeriesUntouched(t *testing.T) {
	timeframe := NewTimeframe(60, "A")

	store := Ingest(nil, MinuteBars{minute(0, "A", bar(100, 101, 10, 6))})
	prior := Build(store, timeframe)

	update := MinuteBars{minute(0, "A", bar(100, 110, 30, 1))}
	store = Ingest(store, update)
	_ = Refresh(prior, store, update, timeframe)

	assertValuePoints(t, "prior cvd", []ValuePoint{{Time: 0, Value: 2}}, prior.CVD())

	if prior.Candles()[0].Close != 101 {
		t.Errorf("prior candles have been modified")
	}
}

func TestRefresh_SkipsNilMinuteBars(t *testing.T) {
	timeframe := NewTimeframe(60, "A")

	store := Ingest(nil, MinuteBars{minute(0, "A", bar(100, 101, 10, 6))})
	series := Build(store, timeframe)

	batch := MinuteBars{nil, minute(60, "A", bar(101, 102, 10, 7)), nil}
	store = Ingest(store, batch)
	series = Refresh(series, store, batch, timeframe)

	assertSeriesEqual(t, Build(store, timeframe), series)
	assertValuePoints(
		t,
		"cvd",
		[]ValuePoint{{Time: 0, Value: 2}, {Time: 60, Value: 6}},
		series.CVD(),
	)

	unchanged := Refresh(series, store, MinuteBars{nil}, timeframe)
	if unchanged != series {
		t.Errorf("batch without minute bars should keep the prior series")
	}
}

func TestRefresh_ExchangeCVDAccumulatesIndependently(t *testing.T) {
	timeframe := NewTimeframe(60, "A")

	store := Ingest(nil, MinuteBars{
		minute(0, "A", bar(100, 101, 10, 6)),
		minute(60, "A", bar(101, 102, 10, 6), "B", bar(101, 102, 10, 1)),
	})
	series := Build(store, timeframe)

	update := MinuteBars{minute(120, "A", bar(102, 103, 10, 6), "B", bar(102, 103, 4, 3))}
	store = Ingest(store, update)
	series = Refresh(series, store, update, timeframe)

	assertValuePoints(
		t,
		"exchange A cvd",
		[]ValuePoint{{Time: 0, Value: 2}, {Time: 60, Value: 4}, {Time: 120, Value: 6}},
		series.ExchangeCVD("A"),
	)
	assertValuePoints(
		t,
		"exchange B cvd",
		[]ValuePoint{{Time: 60, Value: -8}, {Time: 120, Value: -6}},
		series.ExchangeCVD("B"),
	)
	assertValuePoints(
		t,
		"global cvd",
		[]ValuePoint{{Time: 0, Value: 2}, {Time: 60, Value: 4}, {Time: 120, Value: 6}},
		series.CVD(),
	)

	if len(series.ExchangeCVD("kraken")) != 0 {
		t.Errorf("unexpected cvd for unknown exchange")
	}
}

func TestBuild_VolumeDeltaDirection(t *testing.T) {
	series := Build(
		MinuteBars{
			minute(0, "A", bar(1, 1, 10, 7)),
			minute(60, "A", bar(1, 1, 10, 2)),
			minute(120, "A", bar(1, 1, 10, 5)),
		},
		NewTimeframe(60, "A"),
	)

	expected := []VolumeDeltaPoint{
		{Time: 0, Value: 4, Direction: DirectionBuy, Color: BuyDeltaColor},
		{Time: 60, Value: 6, Direction: DirectionSell, Color: SellDeltaColor},
		{Time: 120, Value: 0, Direction: DirectionSell, Color: SellDeltaColor},
	}

	if !reflect.DeepEqual(expected, series.VolumeDelta()) {
		t.Errorf(
			"unexpected volume delta\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expected,
			series.VolumeDelta(),
		)
	}
}

func TestBuild_EmptyStore(t *testing.T) {
	series := Build(nil, NewTimeframe(60, "A"))

	if series.Len() != 0 || len(series.CVD()) != 0 || len(series.Exchanges()) != 0 {
		t.Errorf("expected empty series")
	}

	if _, ok := series.LastBucket(); ok {
		t.Errorf("empty series should not have last bucket")
	}
}

func TestRefresh_MatchesBuild(t *testing.T) {
	var tests = map[string]Timeframe{
		"one minute":    NewTimeframe(60, "binance", "kraken"),
		"three minutes": NewTimeframe(180, "binance", "kraken"),
		"five minutes":  NewTimeframe(300, "binance"),
		"one hour":      NewTimeframe(3600, "binance", "bitstamp", "kraken"),
	}

	for testName, timeframe := range tests {
		t.Run(testName, func(t *testing.T) {
			random := rand.New(rand.NewSource(42))

			var store MinuteBars
			series := Build(store, timeframe)

			for _, batch := range liveBatches(random, 240) {
				store = Ingest(store, batch)
				series = Refresh(series, store, batch, timeframe)

				assertSeriesEqual(t, Build(store, timeframe), series)
				if t.Failed() {
					t.Fatalf("series diverged after batch %v", batch)
				}
			}
		})
	}
}

// liveBatches simulates a poller reporting the last few minutes on every
// tick. The open minute is reported repeatedly with a changing set of
// exchanges and older minutes are occasionally replayed.
func liveBatches(random *rand.Rand, minutes int) []MinuteBars {
	exchanges := []string{"binance", "bitstamp", "kraken", "huobi"}
	price := 10000.0

	history := make(MinuteBars, 0, minutes)
	batches := make([]MinuteBars, 0)

	for i := 0; i < minutes; i++ {
		timestamp := int64(i * MinuteSeconds)

		ticks := 1 + random.Intn(3)

		for tick := 0; tick < ticks; tick++ {
			minuteBar := NewMinuteBar(timestamp)

			for _, exchange := range exchanges {
				if random.Intn(4) == 0 {
					continue
				}

				openPrice := price + random.Float64()*10 - 5
				closePrice := price + random.Float64()*10 - 5
				volume := float64(random.Intn(100)) / 4
				buyVolume := volume * float64(random.Intn(5)) / 4

				minuteBar.BarsByExchange[exchange] = &ExchangeBar{
					Open:       openPrice,
					High:       openPrice + 7,
					Low:        closePrice - 7,
					Close:      closePrice,
					Volume:     volume,
					BuyVolume:  buyVolume,
					SellVolume: volume - buyVolume,
				}
			}

			batch := MinuteBars{minuteBar}
			for back := 1; back <= 2 && len(history) >= back; back++ {
				if random.Intn(3) == 0 {
					batch = append(batch, history[len(history)-back])
				}
			}

			batches = append(batches, batch)

			if tick == 0 {
				history = append(history, minuteBar)
			} else {
				history[len(history)-1] = minuteBar
			}
		}

		price += random.Float64()*20 - 10
	}

	return batches
}

func assertSeriesEqual(t *testing.T, expected, actual *Series) {
	t.Helper()

	if !reflect.DeepEqual(expected.Candles(), actual.Candles()) {
		t.Errorf(
			"unexpected candles\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expected.Candles(),
			actual.Candles(),
		)
	}

	assertValuePoints(t, "cvd", expected.CVD(), actual.CVD())
	assertValuePoints(t, "volume", expected.Volume(), actual.Volume())

	if !reflect.DeepEqual(expected.VolumeDelta(), actual.VolumeDelta()) {
		t.Errorf(
			"unexpected volume delta\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expected.VolumeDelta(),
			actual.VolumeDelta(),
		)
	}

	if !reflect.DeepEqual(expected.Exchanges(), actual.Exchanges()) {
		t.Errorf(
			"unexpected cvd exchanges\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expected.Exchanges(),
			actual.Exchanges(),
		)
	}

	for _, exchange := range expected.Exchanges() {
		assertValuePoints(
			t,
			exchange+" cvd",
			expected.ExchangeCVD(exchange),
			actual.ExchangeCVD(exchange),
		)
	}

	expectedLast, expectedOk := expected.LastBucket()
	actualLast, actualOk := actual.LastBucket()
	if expectedLast != actualLast || expectedOk != actualOk {
		t.Errorf(
			"unexpected last bucket\n"+
				"expected: [%v, %v]\n"+
				"actual:   [%v, %v]",
			expectedLast,
			expectedOk,
			actualLast,
			actualOk,
		)
	}
}

func assertValuePoints(t *testing.T, name string, expected, actual []ValuePoint) {
	t.Helper()

	if !reflect.DeepEqual(expected, actual) {
		t.Errorf(
			"unexpected %v\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			name,
			expected,
			actual,
		)
	}
}
