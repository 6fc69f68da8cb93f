package main

import (
	"fmt"
	"github.com/lukasz-zimnoch/dexly/voluba/daemon"
	"github.com/sherifabdlnaby/configuro"
	"time"
)

// Config values can be set using either environment variables with `CONFIG_`
// prefix or config.yml file placed in working directory.
// See https://github.com/sherifabdlnaby/configuro.
type Config struct {
	Logging  Logging
	Chart    Chart
	Poll     Poll
	Storage  Storage
	Binance  Binance
	Files    Files
	Database Database
	PubSub   PubSub
	Web      Web
}

type Logging struct {
	Level  string
	Format string
}

type Chart struct {
	// Timeframe is a duration string like `1m`, `5m` or `1h`.
	Timeframe   string
	Exchanges   []string
	HistoryDays int
}

type Poll struct {
	Interval string
	Window   string
	Timeout  string
}

// Storage selects the minute-bar repository: `inmem`, `files` or
// `postgres`.
type Storage struct {
	Kind       string
	WindowSize int
}

type Binance struct {
	Enabled   bool
	ApiKey    string
	SecretKey string
	Symbol    string
}

// Files points to a directory with per-day JSON files. With Source
// enabled the files are also polled for minutes written by an external
// producer.
type Files struct {
	DataPath string
	Source   bool
}

type Database struct {
	Address      string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MigrationDir string
}

type PubSub struct {
	Enabled   bool
	ProjectID string
	TopicID   string
}

type Web struct {
	Address string
}

func readConfig() (*Config, error) {
	loader, err := configuro.NewConfig()
	if err != nil {
		return nil, err
	}

	// Default config values.
	config := &Config{
		Logging: Logging{
			Level: "info",
		},
		Chart: Chart{
			Timeframe: "1m",
			Exchanges: []string{
				"binance",
				"bitstamp",
				"huobi",
				"coinbase",
				"kraken",
				"bitfinex",
			},
			HistoryDays: 1,
		},
		Poll: Poll{
			Interval: "1s",
			Window:   "3m",
			Timeout:  "1m",
		},
		Storage: Storage{
			Kind:       "inmem",
			WindowSize: 2 * 24 * 60,
		},
		Binance: Binance{
			Enabled: true,
			Symbol:  "BTCUSDT",
		},
		Files: Files{
			DataPath: "data",
		},
		Database: Database{
			Address:  "localhost:5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			SSLMode:  "disable",
		},
		Web: Web{
			Address: ":8080",
		},
	}

	err = loader.Load(config)
	if err != nil {
		return nil, err
	}

	err = loader.Validate(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (p *Poll) monitorConfig(historyDays int) (*daemon.MonitorConfig, error) {
	durations := map[string]string{
		"interval": p.Interval,
		"window":   p.Window,
		"timeout":  p.Timeout,
	}

	parsed := make(map[string]time.Duration, len(durations))
	for name, value := range durations {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("could not parse poll %v: [%v]", name, err)
		}
		if duration <= 0 {
			return nil, fmt.Errorf("poll %v must be positive", name)
		}
		parsed[name] = duration
	}

	if historyDays < 0 {
		return nil, fmt.Errorf("history days must not be negative")
	}

	return &daemon.MonitorConfig{
		PollInterval: parsed["interval"],
		PollWindow:   parsed["window"],
		PollTimeout:  parsed["timeout"],
		HistoryDays:  historyDays,
	}, nil
}
