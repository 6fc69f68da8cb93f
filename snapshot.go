package voluba

import (
	"context"
	"fmt"
	"time"
)

// Snapshot is an immutable copy of the series handed over to sinks.
// Sequence grows with every committed update of a chart, so sinks can tell
// a stale snapshot from a newer one.
type Snapshot struct {
	Revision      string                  `json:"revision"`
	Sequence      uint64                  `json:"sequence"`
	CreatedAt     time.Time               `json:"createdAt"`
	TargetSeconds int64                   `json:"targetSeconds"`
	Exchanges     []string                `json:"exchanges"`
	Candles       []CandlePoint           `json:"candles"`
	CVD           []ValuePoint            `json:"cvd"`
	ExchangeCVD   map[string][]ValuePoint `json:"exchangeCvd"`
	Volume        []ValuePoint            `json:"volume"`
	VolumeDelta   []VolumeDeltaPoint      `json:"volumeDelta"`
}

func (s *Series) Snapshot(
	revision ID,
	sequence uint64,
	createdAt time.Time,
) *Snapshot {
	exchangeCVD := make(map[string][]ValuePoint)
	for _, exchange := range s.Exchanges() {
		exchangeCVD[exchange] = s.ExchangeCVD(exchange)
	}

	return &Snapshot{
		Revision:      revision.String(),
		Sequence:      sequence,
		CreatedAt:     createdAt,
		TargetSeconds: s.timeframe.TargetSeconds,
		Exchanges:     s.timeframe.WantedExchanges.Slice(),
		Candles:       s.Candles(),
		CVD:           s.CVD(),
		ExchangeCVD:   exchangeCVD,
		Volume:        s.Volume(),
		VolumeDelta:   s.VolumeDelta(),
	}
}

func (s *Snapshot) String() string {
	return fmt.Sprintf(
		"revision: %v, sequence: %v, target: %vs, points: %v",
		s.Revision,
		s.Sequence,
		s.TargetSeconds,
		len(s.Candles),
	)
}

// SeriesSink accepts every snapshot produced by a refresh cycle.
type SeriesSink interface {
	PublishSeries(ctx context.Context, snapshot *Snapshot) error
}
