package postgres

import (
	"context"
	"fmt"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgtype"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"sync"
	"time"
)

const databaseModeCheckInterval = 1 * time.Minute

type Config struct {
	Address      string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MigrationDir string
}

func (c *Config) address() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Address,
		c.Name,
		c.SSLMode,
	)
}

// Client holds the database handle and swaps it for a new one whenever
// the connected instance turns out to be a read-only replica.
type Client struct {
	logger voluba.Logger

	mutex    sync.RWMutex
	database *sqlx.DB
}

func NewClient(
	ctx context.Context,
	logger voluba.Logger,
	config *Config,
) (*Client, error) {
	database, err := connectDatabase(config)
	if err != nil {
		return nil, err
	}

	client := &Client{
		logger:   logger.WithField("component", "postgres"),
		database: database,
	}

	go client.monitorDatabaseMode(ctx, config)

	return client, nil
}

func connectDatabase(config *Config) (*sqlx.DB, error) {
	database, err := sqlx.Connect("pgx", config.address())
	if err != nil {
		return nil, fmt.Errorf("could not connect database: [%v]", err)
	}

	return database, nil
}

func (c *Client) monitorDatabaseMode(ctx context.Context, config *Config) {
	ticker := time.NewTicker(databaseModeCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var isReadonly bool
			err := c.instance().GetContext(ctx, &isReadonly, "SELECT pg_is_in_recovery()")
			if err != nil {
				c.logger.Errorf(
					"could not determine database mode: [%v]",
					err,
				)
				continue
			}

			if !isReadonly {
				continue
			}

			c.logger.Infof(
				"database instance demoted to read-only mode; " +
					"reconnecting master database",
			)

			newDatabase, err := connectDatabase(config)
			if err != nil {
				c.logger.Errorf(
					"could not reconnect master database: [%v]",
					err,
				)
				continue
			}

			c.mutex.Lock()
			_ = c.database.Close()
			c.database = newDatabase
			c.mutex.Unlock()

			c.logger.Infof("reconnected master database")
		case <-ctx.Done():
			c.mutex.Lock()
			_ = c.database.Close()
			c.mutex.Unlock()
			return
		}
	}
}

func (c *Client) instance() *sqlx.DB {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.database
}

func RunMigration(
	logger voluba.Logger,
	config *Config,
) error {
	if len(config.MigrationDir) == 0 {
		logger.Infof("postgres migration disabled")
		return nil
	}

	logger.Infof("starting postgres migration")

	migration, err := migrate.New("file://"+config.MigrationDir, config.address())
	if err != nil {
		return fmt.Errorf("could not prepare migration: [%v]", err)
	}
	defer migration.Close()

	err = migration.Up()
	if err != nil {
		if err == migrate.ErrNoChange {
			logger.Infof("postgres migration skipped as there are no changes")
			return nil
		}

		return fmt.Errorf("could not apply migration: [%v]", err)
	}

	logger.Infof("postgres migration performed successfully")

	return nil
}

func floatToNumeric(value float64) (pgtype.Numeric, error) {
	var result pgtype.Numeric

	if err := result.Set(value); err != nil {
		return pgtype.Numeric{}, err
	}

	return result, nil
}

func numericToFloat(value pgtype.Numeric) (float64, error) {
	var result float64

	if err := value.AssignTo(&result); err != nil {
		return 0, err
	}

	return result, nil
}
