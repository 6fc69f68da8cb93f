package web

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/gorilla/websocket"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"net/http"
	"sync"
	"time"
)

const shutdownTimeout = 5 * time.Second

// Chart is the part of voluba.Chart exposed over HTTP.
type Chart interface {
	Snapshot() *voluba.Snapshot

	Timeframe() voluba.Timeframe

	Configure(timeframe voluba.Timeframe) (*voluba.Snapshot, error)
}

// Server serves the latest series snapshot, pushes every new snapshot to
// websocket clients and lets the operator switch the timeframe.
type Server struct {
	logger voluba.Logger
	chart  Chart
	web    *http.Server
	keeper *keeper

	publishMutex  sync.Mutex
	lastPublished uint64
}

func NewServer(address string, logger voluba.Logger, chart Chart) *Server {
	server := &Server{
		logger: logger.WithField("component", "web"),
		chart:  chart,
		web: &http.Server{
			Addr: address,
		},
		keeper: newKeeper(),
	}
	server.web.Handler = server.router()
	return server
}

// Run serves requests until the context is done.
func (s *Server) Run(ctx context.Context) error {
	closed := make(chan error, 1)

	go func() {
		s.logger.Infof("listening on [%v]", s.web.Addr)
		closed <- s.web.ListenAndServe()
	}()

	select {
	case err := <-closed:
		return fmt.Errorf("web server stopped: [%v]", err)
	case <-ctx.Done():
		shutdownCtx, cancelShutdownCtx := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancelShutdownCtx()

		_ = s.web.Shutdown(shutdownCtx)
		return ctx.Err()
	}
}

// PublishSeries pushes the snapshot to every connected websocket client.
// Clients failing to receive it are disconnected. A snapshot older than
// the last pushed one is dropped.
func (s *Server) PublishSeries(
	_ context.Context,
	snapshot *voluba.Snapshot,
) error {
	s.publishMutex.Lock()
	defer s.publishMutex.Unlock()

	if snapshot.Sequence <= s.lastPublished {
		s.logger.Debugf(
			"dropping stale series snapshot [%v]; last pushed sequence [%v]",
			snapshot,
			s.lastPublished,
		)
		return nil
	}

	s.lastPublished = snapshot.Sequence

	data, err := json.Marshal(newMessage(snapshot))
	if err != nil {
		return fmt.Errorf("could not marshal series message: [%v]", err)
	}

	for _, connection := range s.keeper.connections() {
		if err := connection.write(websocket.TextMessage, data); err != nil {
			s.logger.Debugf("dropping websocket client: [%v]", err)
			s.keeper.close(connection.conn)
		}
	}

	return nil
}

type message struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload"`
}

func newMessage(snapshot *voluba.Snapshot) *message {
	return &message{
		Name:    "series",
		Payload: snapshot,
	}
}
