package inmem

import (
	"context"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"testing"
	"time"
)

func TestMinuteBarRepository_SaveMinuteBars(t *testing.T) {
	ctx := context.Background()

	windowSize := 5
	repository := NewMinuteBarRepository(windowSize)

	minuteBars := voluba.MinuteBars{
		minuteBar(t, "2021-06-11T15:00:00Z", 1),
		minuteBar(t, "2021-06-11T15:00:00Z", 2),
		minuteBar(t, "2021-06-11T15:01:00Z", 1),
		minuteBar(t, "2021-06-11T15:02:00Z", 1),
		minuteBar(t, "2021-06-11T15:03:00Z", 1),
		minuteBar(t, "2021-06-11T15:04:00Z", 1),
		minuteBar(t, "2021-06-11T15:04:00Z", 2),
		minuteBar(t, "2021-06-11T15:05:00Z", 1),
		minuteBar(t, "2021-06-11T15:06:00Z", 1),
	}

	if err := repository.SaveMinuteBars(ctx, minuteBars...); err != nil {
		t.Fatal(err)
	}

	if err := repository.SaveMinuteBars(
		ctx,
		minuteBar(t, "2021-06-11T15:07:00Z", 1),
		minuteBar(t, "2021-06-11T14:59:00Z", 1),
	); err != nil {
		t.Fatal(err)
	}

	actualMinuteBars, err := repository.MinuteBars(
		ctx,
		parseTime(t, "2021-06-11T00:00:00Z"),
		parseTime(t, "2021-06-12T00:00:00Z"),
	)
	if err != nil {
		t.Fatal(err)
	}

	if len(actualMinuteBars) != windowSize {
		t.Fatalf(
			"unexpected minute bars count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			windowSize,
			len(actualMinuteBars),
		)
	}

	assertMinuteBarEqual(t, minuteBar(t, "2021-06-11T15:03:00Z", 1), actualMinuteBars[0])
	assertMinuteBarEqual(t, minuteBar(t, "2021-06-11T15:04:00Z", 2), actualMinuteBars[1])
	assertMinuteBarEqual(t, minuteBar(t, "2021-06-11T15:05:00Z", 1), actualMinuteBars[2])
	assertMinuteBarEqual(t, minuteBar(t, "2021-06-11T15:06:00Z", 1), actualMinuteBars[3])
	assertMinuteBarEqual(t, minuteBar(t, "2021-06-11T15:07:00Z", 1), actualMinuteBars[4])
}

func TestMinuteBarRepository_MinuteBarsRange(t *testing.T) {
	ctx := context.Background()

	repository := NewMinuteBarRepository(DefaultWindowSize)

	if err := repository.SaveMinuteBars(
		ctx,
		minuteBar(t, "2021-06-11T15:00:00Z", 1),
		minuteBar(t, "2021-06-11T15:01:00Z", 1),
		minuteBar(t, "2021-06-11T15:02:00Z", 1),
	); err != nil {
		t.Fatal(err)
	}

	actualMinuteBars, err := repository.MinuteBars(
		ctx,
		parseTime(t, "2021-06-11T15:01:00Z"),
		parseTime(t, "2021-06-11T15:01:59Z"),
	)
	if err != nil {
		t.Fatal(err)
	}

	if len(actualMinuteBars) != 1 {
		t.Fatalf(
			"unexpected minute bars count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			1,
			len(actualMinuteBars),
		)
	}

	assertMinuteBarEqual(t, minuteBar(t, "2021-06-11T15:01:00Z", 1), actualMinuteBars[0])

	if repository.Len() != 3 {
		t.Errorf(
			"unexpected repository size\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			3,
			repository.Len(),
		)
	}
}

func minuteBar(t *testing.T, timestamp string, close float64) *voluba.MinuteBar {
	minuteBar := voluba.NewMinuteBar(parseTime(t, timestamp).Unix())
	minuteBar.BarsByExchange["binance"] = &voluba.ExchangeBar{
		Open:       close,
		High:       close,
		Low:        close,
		Close:      close,
		Volume:     1,
		BuyVolume:  1,
		SellVolume: 0,
	}
	return minuteBar
}

func parseTime(t *testing.T, value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatal(err)
	}
	return parsed
}

func assertMinuteBarEqual(t *testing.T, expected, actual *voluba.MinuteBar) {
	if expected.Timestamp != actual.Timestamp {
		t.Errorf(
			"unexpected timestamp\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expected.Time(),
			actual.Time(),
		)
	}

	expectedClose := expected.BarsByExchange["binance"].Close
	actualClose := actual.BarsByExchange["binance"].Close

	if expectedClose != actualClose {
		t.Errorf(
			"unexpected close\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expectedClose,
			actualClose,
		)
	}
}
