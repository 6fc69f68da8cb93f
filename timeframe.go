package voluba

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrInvalidTimeframe = errors.New("target seconds must be positive")

// ExchangeSet is the set of exchange identifiers selected by the operator.
type ExchangeSet map[string]struct{}

func NewExchangeSet(exchanges ...string) ExchangeSet {
	set := make(ExchangeSet, len(exchanges))
	for _, exchange := range exchanges {
		set[exchange] = struct{}{}
	}
	return set
}

func (es ExchangeSet) Contains(exchange string) bool {
	_, ok := es[exchange]
	return ok
}

func (es ExchangeSet) Slice() []string {
	exchanges := make([]string, 0, len(es))
	for exchange := range es {
		exchanges = append(exchanges, exchange)
	}

	sort.Strings(exchanges)

	return exchanges
}

// Timeframe configures the aggregation: the bucket width and the exchanges
// taking part in the cross-exchange price average.
type Timeframe struct {
	TargetSeconds   int64
	WantedExchanges ExchangeSet
}

func NewTimeframe(targetSeconds int64, exchanges ...string) Timeframe {
	return Timeframe{
		TargetSeconds:   targetSeconds,
		WantedExchanges: NewExchangeSet(exchanges...),
	}
}

// ParseTimeframe builds a timeframe out of a duration string like `5m`
// or `1h`. The duration must be a positive multiple of one minute as
// buckets are made of whole minute bars.
func ParseTimeframe(duration string, exchanges ...string) (Timeframe, error) {
	parsed, err := time.ParseDuration(duration)
	if err != nil {
		return Timeframe{}, fmt.Errorf(
			"could not parse timeframe duration: [%v]",
			err,
		)
	}

	if parsed%time.Minute != 0 {
		return Timeframe{}, fmt.Errorf(
			"timeframe duration [%v] is not a whole number of minutes",
			parsed,
		)
	}

	timeframe := NewTimeframe(int64(parsed/time.Second), exchanges...)

	if err := timeframe.Validate(); err != nil {
		return Timeframe{}, err
	}

	return timeframe, nil
}

func (tf Timeframe) Validate() error {
	if tf.TargetSeconds <= 0 {
		return ErrInvalidTimeframe
	}
	return nil
}

// BucketStart returns the start of the bucket the timestamp falls in.
func (tf Timeframe) BucketStart(timestamp int64) int64 {
	bucket := timestamp / tf.TargetSeconds
	if timestamp%tf.TargetSeconds != 0 && timestamp < 0 {
		bucket--
	}
	return bucket * tf.TargetSeconds
}

func (tf Timeframe) copy() Timeframe {
	return NewTimeframe(tf.TargetSeconds, tf.WantedExchanges.Slice()...)
}

// Equal reports whether both timeframes would produce identical series.
func (tf Timeframe) Equal(other Timeframe) bool {
	if tf.TargetSeconds != other.TargetSeconds ||
		len(tf.WantedExchanges) != len(other.WantedExchanges) {
		return false
	}

	for exchange := range tf.WantedExchanges {
		if !other.WantedExchanges.Contains(exchange) {
			return false
		}
	}

	return true
}

func (tf Timeframe) String() string {
	return fmt.Sprintf(
		"target: %v, exchanges: [%v]",
		time.Duration(tf.TargetSeconds)*time.Second,
		strings.Join(tf.WantedExchanges.Slice(), ","),
	)
}
