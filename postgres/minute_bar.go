package postgres

import (
	"context"
	"fmt"
	"github.com/jackc/pgtype"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"time"
)

type MinuteBarRepository struct {
	client *Client
}

func NewMinuteBarRepository(client *Client) *MinuteBarRepository {
	return &MinuteBarRepository{client}
}

// SaveMinuteBars stores every minute as a whole: exchange rows of
// a minute saved before are replaced by the rows of the new version.
func (mbr *MinuteBarRepository) SaveMinuteBars(
	ctx context.Context,
	minuteBars ...*voluba.MinuteBar,
) error {
	deleteQuery := `DELETE FROM exchange_bar WHERE time = $1`

	insertQuery := `INSERT INTO 
		exchange_bar (time, exchange, open, high, low, close, volume, buy_volume, sell_volume) 
		VALUES (:time, :exchange, :open, :high, :low, :close, :volume, :buy_volume, :sell_volume)`

	transaction, err := mbr.client.instance().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: [%v]", err)
	}
	defer func() {
		_ = transaction.Rollback()
	}()

	for _, minuteBar := range minuteBars {
		if minuteBar == nil {
			continue
		}

		_, err := transaction.ExecContext(ctx, deleteQuery, minuteBar.Time())
		if err != nil {
			return fmt.Errorf(
				"could not delete rows of minute [%v]: [%v]",
				minuteBar.Time(),
				err,
			)
		}

		rows, err := wrapMinuteBar(minuteBar)
		if err != nil {
			return fmt.Errorf(
				"could not convert minute [%v] to pg rows: [%v]",
				minuteBar.Time(),
				err,
			)
		}

		for _, row := range rows {
			_, err = transaction.NamedExecContext(ctx, insertQuery, row)
			if err != nil {
				return fmt.Errorf(
					"could not execute command for minute [%v]: [%v]",
					minuteBar.Time(),
					err,
				)
			}
		}
	}

	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: [%v]", err)
	}

	return nil
}

func (mbr *MinuteBarRepository) MinuteBars(
	ctx context.Context,
	start, end time.Time,
) (voluba.MinuteBars, error) {
	query := `SELECT * FROM exchange_bar 
		WHERE time BETWEEN $1 AND $2 
		ORDER BY time, exchange`

	var rows []*exchangeBarRow
	err := mbr.client.instance().SelectContext(ctx, &rows, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("could not select exchange bars: [%v]", err)
	}

	return unwrapMinuteBars(rows)
}

type exchangeBarRow struct {
	Time       time.Time
	Exchange   string
	Open       pgtype.Numeric
	High       pgtype.Numeric
	Low        pgtype.Numeric
	Close      pgtype.Numeric
	Volume     pgtype.Numeric
	BuyVolume  pgtype.Numeric `db:"buy_volume"`
	SellVolume pgtype.Numeric `db:"sell_volume"`
}

func (ebr *exchangeBarRow) wrap(
	timestamp time.Time,
	exchange string,
	bar *voluba.ExchangeBar,
) (*exchangeBarRow, error) {
	values := []float64{
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.Volume,
		bar.BuyVolume,
		bar.SellVolume,
	}

	numerics := make([]pgtype.Numeric, len(values))
	for index, value := range values {
		numeric, err := floatToNumeric(value)
		if err != nil {
			return nil, err
		}
		numerics[index] = numeric
	}

	ebr.Time = timestamp
	ebr.Exchange = exchange
	ebr.Open = numerics[0]
	ebr.High = numerics[1]
	ebr.Low = numerics[2]
	ebr.Close = numerics[3]
	ebr.Volume = numerics[4]
	ebr.BuyVolume = numerics[5]
	ebr.SellVolume = numerics[6]

	return ebr, nil
}

func (ebr *exchangeBarRow) unwrap() (*voluba.ExchangeBar, error) {
	numerics := []pgtype.Numeric{
		ebr.Open,
		ebr.High,
		ebr.Low,
		ebr.Close,
		ebr.Volume,
		ebr.BuyVolume,
		ebr.SellVolume,
	}

	values := make([]float64, len(numerics))
	for index, numeric := range numerics {
		value, err := numericToFloat(numeric)
		if err != nil {
			return nil, err
		}
		values[index] = value
	}

	return &voluba.ExchangeBar{
		Open:       values[0],
		High:       values[1],
		Low:        values[2],
		Close:      values[3],
		Volume:     values[4],
		BuyVolume:  values[5],
		SellVolume: values[6],
	}, nil
}

func wrapMinuteBar(minuteBar *voluba.MinuteBar) ([]*exchangeBarRow, error) {
	rows := make([]*exchangeBarRow, 0, len(minuteBar.BarsByExchange))

	for _, exchange := range minuteBar.Exchanges() {
		row, err := new(exchangeBarRow).wrap(
			minuteBar.Time(),
			exchange,
			minuteBar.BarsByExchange[exchange],
		)
		if err != nil {
			return nil, err
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// unwrapMinuteBars groups rows ordered by time into minute bars.
func unwrapMinuteBars(rows []*exchangeBarRow) (voluba.MinuteBars, error) {
	minuteBars := make(voluba.MinuteBars, 0)

	for _, row := range rows {
		bar, err := row.unwrap()
		if err != nil {
			return nil, fmt.Errorf(
				"could not convert pg row [%v/%v]: [%v]",
				row.Time,
				row.Exchange,
				err,
			)
		}

		timestamp := row.Time.Unix()

		last := minuteBars.Last()
		if last == nil || last.Timestamp != timestamp {
			last = voluba.NewMinuteBar(timestamp)
			minuteBars = append(minuteBars, last)
		}

		last.BarsByExchange[row.Exchange] = bar
	}

	return minuteBars, nil
}
