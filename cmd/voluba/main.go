package main

import (
	"context"
	"fmt"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"github.com/lukasz-zimnoch/dexly/voluba/binance"
	"github.com/lukasz-zimnoch/dexly/voluba/daemon"
	"github.com/lukasz-zimnoch/dexly/voluba/inmem"
	"github.com/lukasz-zimnoch/dexly/voluba/jsonfile"
	"github.com/lukasz-zimnoch/dexly/voluba/logrus"
	"github.com/lukasz-zimnoch/dexly/voluba/postgres"
	"github.com/lukasz-zimnoch/dexly/voluba/pubsub"
	"github.com/lukasz-zimnoch/dexly/voluba/uuid"
	"github.com/lukasz-zimnoch/dexly/voluba/web"
	"github.com/oklog/run"
	"os"
	"syscall"
)

func main() {
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	config, err := readConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "could not read config: [%v]", err)
		os.Exit(1)
	}

	logger, err := logrus.ConfigureStandardLogger(
		config.Logging.Format,
		config.Logging.Level,
	)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "could not configure logger: [%v]", err)
		os.Exit(1)
	}

	timeframe, err := voluba.ParseTimeframe(
		config.Chart.Timeframe,
		config.Chart.Exchanges...,
	)
	if err != nil {
		logger.Fatalf("could not parse chart timeframe: [%v]", err)
	}

	chart, err := voluba.NewChart(
		logger.WithField("component", "chart"),
		uuid.NewIDService(),
		timeframe,
	)
	if err != nil {
		logger.Fatalf("could not create chart: [%v]", err)
	}

	repository, err := createRepository(ctx, logger, config)
	if err != nil {
		logger.Fatalf("could not create minute bar repository: [%v]", err)
	}

	sources, err := createSources(config)
	if err != nil {
		logger.Fatalf("could not create minute bar sources: [%v]", err)
	}

	webServer := web.NewServer(config.Web.Address, logger, chart)

	sinks := []voluba.SeriesSink{webServer}

	if config.PubSub.Enabled {
		pubsubClient, err := pubsub.NewClient(
			ctx,
			config.PubSub.ProjectID,
			config.PubSub.TopicID,
		)
		if err != nil {
			logger.Fatalf("could not create pubsub client: [%v]", err)
		}
		defer func() {
			_ = pubsubClient.Close()
		}()

		sinks = append(sinks, pubsub.NewSeriesPublisher(pubsubClient, logger))
	}

	monitorConfig, err := config.Poll.monitorConfig(config.Chart.HistoryDays)
	if err != nil {
		logger.Fatalf("could not configure refresh monitor: [%v]", err)
	}

	controller := daemon.NewController(
		logger,
		monitorConfig,
		chart,
		sources,
		repository,
		sinks,
	)

	logger.Infof("starting voluba with timeframe [%v]", timeframe)

	var group run.Group

	group.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	addService(ctx, &group, controller)
	addService(ctx, &group, webServer)

	err = group.Run()

	logger.Infof("voluba stopped: [%v]", err)
}

type runner interface {
	Run(ctx context.Context) error
}

func addService(ctx context.Context, group *run.Group, service runner) {
	serviceCtx, cancelServiceCtx := context.WithCancel(ctx)

	group.Add(
		func() error {
			return service.Run(serviceCtx)
		},
		func(error) {
			cancelServiceCtx()
		},
	)
}

func createRepository(
	ctx context.Context,
	logger voluba.Logger,
	config *Config,
) (voluba.MinuteBarRepository, error) {
	switch config.Storage.Kind {
	case "inmem":
		return inmem.NewMinuteBarRepository(config.Storage.WindowSize), nil
	case "files":
		return jsonfile.NewRepository(config.Files.DataPath)
	case "postgres":
		client, err := connectPostgres(ctx, logger, &config.Database)
		if err != nil {
			return nil, err
		}
		return postgres.NewMinuteBarRepository(client), nil
	default:
		return nil, fmt.Errorf("unknown storage kind [%v]", config.Storage.Kind)
	}
}

func createSources(config *Config) ([]voluba.ExchangeBarService, error) {
	sources := make([]voluba.ExchangeBarService, 0)

	if config.Files.Source {
		repository, err := jsonfile.NewRepository(config.Files.DataPath)
		if err != nil {
			return nil, err
		}
		sources = append(sources, repository)
	}

	if config.Binance.Enabled {
		sources = append(sources, binance.NewExchangeService(
			config.Binance.ApiKey,
			config.Binance.SecretKey,
			config.Binance.Symbol,
		))
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no minute bar source enabled")
	}

	return sources, nil
}

func connectPostgres(
	ctx context.Context,
	logger voluba.Logger,
	config *Database,
) (*postgres.Client, error) {
	if err := postgres.RunMigration(
		logger,
		(*postgres.Config)(config),
	); err != nil {
		return nil, fmt.Errorf(
			"could not run postgres migration: [%v]",
			err,
		)
	}

	client, err := postgres.NewClient(
		ctx,
		logger,
		(*postgres.Config)(config),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"could not create postgres client: [%v]",
			err,
		)
	}

	return client, nil
}
