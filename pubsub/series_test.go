package pubsub

import (
	"encoding/json"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"testing"
)

func TestNewSeriesMessage(t *testing.T) {
	snapshot := &voluba.Snapshot{
		Revision:      "3f1c",
		Sequence:      7,
		TargetSeconds: 300,
		Exchanges:     []string{"binance"},
		Candles:       []voluba.CandlePoint{{Time: 0, Open: 1, High: 2, Low: 0.5, Close: 1.5}},
		CVD:           []voluba.ValuePoint{{Time: 0, Value: 10}},
	}

	message, err := newSeriesMessage(snapshot)
	if err != nil {
		t.Fatal(err)
	}

	if message.Attributes["targetSeconds"] != "300" {
		t.Errorf(
			"unexpected target seconds attribute\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			"300",
			message.Attributes["targetSeconds"],
		)
	}

	if message.Attributes["sequence"] != "7" {
		t.Errorf(
			"unexpected sequence attribute\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			"7",
			message.Attributes["sequence"],
		)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(message.Data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded["revision"] != "3f1c" {
		t.Errorf(
			"unexpected revision\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			"3f1c",
			decoded["revision"],
		)
	}

	cvd, ok := decoded["cvd"].([]interface{})
	if !ok || len(cvd) != 1 {
		t.Errorf("unexpected cvd: [%v]", decoded["cvd"])
	}
}
