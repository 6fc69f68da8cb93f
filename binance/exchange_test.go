package binance

import (
	"github.com/adshao/go-binance"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"reflect"
	"testing"
)

func TestParseKline(t *testing.T) {
	kline := &binance.Kline{
		OpenTime:                1623423600000,
		Open:                    "36500.10",
		High:                    "36550.00",
		Low:                     "36480.50",
		Close:                   "36520.25",
		Volume:                  "12.5",
		CloseTime:               1623423659999,
		TakerBuyBaseAssetVolume: "8",
	}

	minuteBar, err := parseKline(kline)
	if err != nil {
		t.Fatal(err)
	}

	if minuteBar.Timestamp != 1623423600 {
		t.Errorf(
			"unexpected timestamp\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			1623423600,
			minuteBar.Timestamp,
		)
	}

	expected := &voluba.ExchangeBar{
		Open:       36500.10,
		High:       36550.00,
		Low:        36480.50,
		Close:      36520.25,
		Volume:     12.5,
		BuyVolume:  8,
		SellVolume: 4.5,
	}

	if !reflect.DeepEqual(expected, minuteBar.BarsByExchange[ExchangeName]) {
		t.Errorf(
			"unexpected exchange bar\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expected,
			minuteBar.BarsByExchange[ExchangeName],
		)
	}
}

func TestParseKline_InvalidNumber(t *testing.T) {
	kline := &binance.Kline{
		OpenTime:                1623423600000,
		Open:                    "36500.10",
		High:                    "n/a",
		Low:                     "36480.50",
		Close:                   "36520.25",
		Volume:                  "12.5",
		TakerBuyBaseAssetVolume: "8",
	}

	if _, err := parseKline(kline); err == nil {
		t.Errorf("expected parse error")
	}
}
