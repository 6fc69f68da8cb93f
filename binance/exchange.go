package binance

import (
	"context"
	"fmt"
	"github.com/adshao/go-binance"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"strconv"
	"time"
)

const (
	ExchangeName = "binance"

	requestTimeout = 1 * time.Minute
	klineInterval  = "1m"
	klinesLimit    = 1000
)

// ExchangeService reports one-minute klines of a single symbol as minute
// bars. The taker buy volume becomes the bar's buy volume and the rest of
// the volume is counted as sell volume.
type ExchangeService struct {
	client *binance.Client
	symbol string
}

func NewExchangeService(apiKey, secretKey, symbol string) *ExchangeService {
	return &ExchangeService{
		client: binance.NewClient(apiKey, secretKey),
		symbol: symbol,
	}
}

func (es *ExchangeService) SourceName() string {
	return ExchangeName
}

func (es *ExchangeService) MinuteBars(
	ctx context.Context,
	start, end time.Time,
) (voluba.MinuteBars, error) {
	minuteBars := make(voluba.MinuteBars, 0)

	for cursor := start; !cursor.After(end); {
		klines, err := es.klines(ctx, cursor, end)
		if err != nil {
			return nil, err
		}

		for _, kline := range klines {
			minuteBar, err := parseKline(kline)
			if err != nil {
				return nil, err
			}

			minuteBars = append(minuteBars, minuteBar)
		}

		if len(klines) < klinesLimit {
			break
		}

		cursor = parseMilliseconds(klines[len(klines)-1].OpenTime).Add(time.Minute)
	}

	return minuteBars, nil
}

func (es *ExchangeService) klines(
	ctx context.Context,
	start, end time.Time,
) ([]*binance.Kline, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	klines, err := es.client.
		NewKlinesService().
		Symbol(es.symbol).
		Interval(klineInterval).
		StartTime(start.UnixNano() / 1e6).
		EndTime(end.UnixNano() / 1e6).
		Limit(klinesLimit).
		Do(requestCtx)
	if err != nil {
		return nil, fmt.Errorf("could not get klines: [%v]", err)
	}

	return klines, nil
}

func parseKline(kline *binance.Kline) (*voluba.MinuteBar, error) {
	values := []string{
		kline.Open,
		kline.High,
		kline.Low,
		kline.Close,
		kline.Volume,
		kline.TakerBuyBaseAssetVolume,
	}

	parsed := make([]float64, len(values))
	for index, value := range values {
		number, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf(
				"could not parse kline [%v] value: [%v]",
				kline.OpenTime,
				err,
			)
		}
		parsed[index] = number
	}

	volume, buyVolume := parsed[4], parsed[5]

	minuteBar := voluba.NewMinuteBar(kline.OpenTime / 1000)
	minuteBar.BarsByExchange[ExchangeName] = &voluba.ExchangeBar{
		Open:       parsed[0],
		High:       parsed[1],
		Low:        parsed[2],
		Close:      parsed[3],
		Volume:     volume,
		BuyVolume:  buyVolume,
		SellVolume: volume - buyVolume,
	}

	return minuteBar, nil
}

func parseMilliseconds(milliseconds int64) time.Time {
	return time.Unix(0, milliseconds*int64(time.Millisecond))
}
