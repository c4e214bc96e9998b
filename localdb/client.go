// Package localdb is a SQLite stand-in for the hosted backend. It implements
// the same gateway tables, the admins registry and a users table for local
// authentication, so the whole application can run without network access.
package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"trajet.transportbi.org/internal/clock"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/models"
)

// Client owns the database handle.
type Client struct {
	config Config
	DB     *sql.DB
	clock  clock.Clock
	logger *slog.Logger
}

// NewClient opens (and migrates) the database described by config.
func NewClient(config Config, c clock.Clock) (*Client, error) {
	if c == nil {
		c = clock.RealClock{}
	}
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	}

	logger := slog.Default().With(slog.String("component", "localdb"))
	if config.Verbose {
		logging.LogOperation(logger, "local_database_ready", slog.String("path", config.DBPath))
	}

	return &Client{
		config: config,
		DB:     db,
		clock:  c,
		logger: logger,
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) GetDBPath() string {
	return c.config.DBPath
}

// Ping checks that the database answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Cities() gateway.Table[models.City] {
	return &docTable[models.City]{c: c, name: gateway.TableCities}
}

func (c *Client) BusLines() gateway.Table[models.BusLine] {
	return &docTable[models.BusLine]{c: c, name: gateway.TableBusLines}
}

func (c *Client) Agencies() gateway.Table[models.TransportAgency] {
	return &docTable[models.TransportAgency]{c: c, name: gateway.TableAgencies}
}

func (c *Client) Routes() gateway.Table[models.IntercityRoute] {
	return &docTable[models.IntercityRoute]{c: c, name: gateway.TableRoutes}
}

// Gateway returns every table backed by this database.
func (c *Client) Gateway() gateway.Gateway {
	return gateway.Gateway{
		Cities:   c.Cities(),
		BusLines: c.BusLines(),
		Agencies: c.Agencies(),
		Routes:   c.Routes(),
		Admins:   c,
	}
}
