package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/storage/database/migrations"
)

const (
	dialect         = "postgres"
	maintenanceDB   = "postgres"
	readyAttempts   = 30
	maxOpenConns    = 10
	connMaxLifetime = 30 * time.Minute
)

func init() {
	goose.SetBaseFS(migrations.FS)
}

// dsn returns the connection url of dbName on the configured server.
func dsn(dbName string, conf *core.Config) string {
	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")
	q.Set("application_name", conf.AppName)

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     url.UserPassword(conf.Database.User, conf.Database.Password),
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open connects to the session store database and waits until it accepts connections.
func Open(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(conf.Database.Engine, dsn(conf.Database.Name, conf))
	if err != nil {
		return nil, errors.Wrap(err, "opening session store")
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err = waitReady(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Setup creates the session store database when missing, connects to it and applies every pending migration.
func Setup(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}
	db, err := Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err = Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// waitReady pings the database until it answers, waiting 100ms longer after each failed attempt.
func waitReady(ctx context.Context, db *sql.DB) error {
	var err error
	for attempt := 1; attempt <= readyAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for database")
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "database ping timeout")
}

// CreateIfNotExist creates the session store database through the maintenance database.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	db, err := sqlx.Open(conf.Database.Engine, dsn(maintenanceDB, conf))
	if err != nil {
		return errors.Wrap(err, "opening maintenance database")
	}
	defer func() { _ = db.Close() }()

	if err = waitReady(ctx, db.DB); err != nil {
		return err
	}

	var exists bool
	err = db.GetContext(ctx, &exists, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "looking up session store database")
	}
	if exists {
		return nil
	}
	// CREATE DATABASE takes no bind parameters
	if _, err = db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %q", conf.Database.Name)); err != nil {
		return errors.Wrapf(err, "creating database %s", conf.Database.Name)
	}
	return nil
}

// Migrate runs a goose command (up, up-to, down, down-to, redo, reset, status, version)
// against the embedded session store migrations.
func Migrate(db *sql.DB, command string, args ...string) error {
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.Run(command, db, ".", args...); err != nil {
		return errors.Wrapf(err, "migrating session store (%s)", command)
	}
	return nil
}
