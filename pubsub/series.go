package pubsub

import (
	"cloud.google.com/go/pubsub"
	"context"
	"encoding/json"
	"fmt"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"strconv"
)

// SeriesPublisher sends every snapshot to the series topic. Delivery is
// confirmed asynchronously and failures are only logged.
type SeriesPublisher struct {
	client *Client
	logger voluba.Logger
}

func NewSeriesPublisher(client *Client, logger voluba.Logger) *SeriesPublisher {
	return &SeriesPublisher{
		client: client,
		logger: logger.WithField("topic", client.seriesTopic.ID()),
	}
}

func (sp *SeriesPublisher) PublishSeries(
	ctx context.Context,
	snapshot *voluba.Snapshot,
) error {
	message, err := newSeriesMessage(snapshot)
	if err != nil {
		return err
	}

	result := sp.client.seriesTopic.Publish(ctx, message)

	go func() {
		id, err := result.Get(ctx)
		if err != nil {
			sp.logger.Errorf(
				"could not publish series snapshot [%v]: [%v]",
				snapshot.Revision,
				err,
			)
			return
		}

		sp.logger.Debugf(
			"published series snapshot [%v] with ID: [%v]",
			snapshot.Revision,
			id,
		)
	}()

	return nil
}

func newSeriesMessage(snapshot *voluba.Snapshot) (*pubsub.Message, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("could not marshal series snapshot: [%v]", err)
	}

	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"revision":      snapshot.Revision,
			"sequence":      strconv.FormatUint(snapshot.Sequence, 10),
			"targetSeconds": strconv.FormatInt(snapshot.TargetSeconds, 10),
		},
	}, nil
}
