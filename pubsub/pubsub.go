package pubsub

import (
	"cloud.google.com/go/pubsub"
	"context"
	"fmt"
)

type Client struct {
	client      *pubsub.Client
	seriesTopic *pubsub.Topic
}

func NewClient(
	ctx context.Context,
	projectID,
	seriesTopicID string,
) (*Client, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("could not create pubsub client: [%v]", err)
	}

	return &Client{
		client:      client,
		seriesTopic: client.Topic(seriesTopicID),
	}, nil
}

// Close flushes pending messages and releases the client.
func (c *Client) Close() error {
	c.seriesTopic.Stop()
	return c.client.Close()
}
