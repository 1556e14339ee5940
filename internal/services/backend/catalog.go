package backend

import (
	"context"
	"fmt"
	"time"

	dberrors "github.com/fgeck/dbdump-homelab/internal/errors"
	"github.com/fgeck/dbdump-homelab/internal/models"
	"github.com/rs/zerolog"
)

const (
	dialTimeout  = 10 * time.Second
	queryTimeout = 30 * time.Second
)

// catalog runs one listing query over a single short-lived connection.
type catalog struct {
	opener  Opener
	backend models.Backend
	driver  string
	dsn     string
	address string
	query   string
	logger  zerolog.Logger
}

func (c *catalog) list(ctx context.Context) ([]string, error) {
	c.logger.Debug().
		Str("address", c.address).
		Str("query", c.query).
		Msg("listing databases")

	db, err := c.opener(c.driver, c.dsn)
	if err != nil {
		return nil, c.connErr(fmt.Errorf("opening connection: %w", err))
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, c.query)
	if err != nil {
		return nil, c.connErr(err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, c.connErr(fmt.Errorf("reading row: %w", err))
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, c.connErr(err)
	}

	c.logger.Info().
		Str("address", c.address).
		Int("count", len(names)).
		Msg("databases discovered")

	return names, nil
}

func (c *catalog) connErr(err error) error {
	return dberrors.NewConnectionError(string(c.backend), c.address, err)
}
