package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/academic"
	"github.com/aminofabian/squlll/storage/database"
	sqlxrepos "github.com/aminofabian/squlll/storage/database/sqlx"
)

var (
	migrateFunc      = migrateDB    // mockable
	openSessionsFunc = openSessions // mockable
)

func migrateDB(conf *core.Config, command string, args ...string) error {
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return err
	}
	defer db.Close()
	return database.Migrate(db.DB, command, args...)
}

func openSessions(conf *core.Config) (academic.SessionRepository, io.Closer, error) {
	db, err := database.Open(context.Background(), conf)
	if err != nil {
		return nil, nil, err
	}
	return sqlxrepos.NewSessionRepository(db), db, nil
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "Run the wizard session store migrations (up, up-by-one, up-to, down, down-to, redo, reset, status, version)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return migrateFunc(cli.conf, args[0], args[1:]...)
		},
	}
}

func (cli *commandLine) purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired wizard sessions from the session store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closer, err := openSessionsFunc(cli.conf)
			if err != nil {
				return errors.Wrap(err, "opening session store")
			}
			defer closer.Close()

			n, err := repo.PurgeExpiredSessions(context.Background(), time.Now())
			if err != nil {
				return errors.Wrap(err, "purging sessions")
			}
			fmt.Fprintf(cli.out, "purged %d expired wizard sessions\n", n)
			return nil
		},
	}
}
