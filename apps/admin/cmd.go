package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/academic"
	"github.com/aminofabian/squlll/core/fees"
	notifysvc "github.com/aminofabian/squlll/services/notify"
	"github.com/aminofabian/squlll/services/schoolapi"
	inmemdb "github.com/aminofabian/squlll/storage/database/inmem"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp     = errors.New("help provided")
	errNoToken  = errors.New("a school backend token is required")
	errNoSchool = errors.New("--school is required")
)

// backend is the school backend the commands run against: the real one, or an in-memory one with --dry-run.
type backend interface {
	academic.Backend
	fees.Backend
	Close()
}

var (
	_ backend = (*schoolapi.Backends)(nil)
	_ backend = (*inmemdb.Schools)(nil)
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	in     io.Reader
	out    io.Writer

	backend  backend // connected on first use
	schoolID string
	dryRun   bool
}

func newCommandLine(conf *core.Config, logger core.Logger, in io.Reader, out io.Writer) *commandLine {
	return &commandLine{conf: conf, logger: logger, in: in, out: out}
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "squlll operator commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.SetIn(cli.in)

	root.PersistentFlags().StringVar(&cli.schoolID, "school", "", "The school (tenant) id the command acts for")
	root.PersistentFlags().BoolVar(&cli.dryRun, "dry-run", false, "Run against an empty in-memory school backend")

	root.AddCommand(
		cli.academicYearCmd(),
		cli.feeStructureCmd(),
		cli.snapshotCmd(),
		cli.migrateCmd(),
		cli.purgeCmd(),
		cli.tokenCmd(),
	)
	return root
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) < 2 {
		_ = root.Usage()
		return errHelp
	}
	root.SetArgs(args[1:])
	return root.Execute()
}

func (cli *commandLine) close() {
	if cli.backend != nil {
		cli.backend.Close()
	}
}

// connect returns the school backend, prompting for the backend token when none is configured.
func (cli *commandLine) connect() (backend, error) {
	if cli.schoolID == "" {
		return nil, errNoSchool
	}
	if cli.backend != nil {
		return cli.backend, nil
	}
	if cli.dryRun {
		cli.backend = inmemdb.NewSchools(cli.logger, cli.conf.Workflow.RefetchDebounce)
		return cli.backend, nil
	}

	if cli.conf.Backend.Token == "" {
		fmt.Fprint(cli.out, "Enter school backend token:")
		token, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return nil, errors.Wrap(err, "reading backend token")
		}
		if len(token) == 0 {
			return nil, errNoToken
		}
		cli.conf.Backend.Token = string(token)
	}
	cli.backend = schoolapi.NewBackends(cli.conf, cli.logger)
	return cli.backend, nil
}

func (cli *commandLine) tenant() core.Tenant {
	return core.Tenant{SchoolID: cli.schoolID, Subject: "admin-cli"}
}

func (cli *commandLine) notifier() core.Notifier {
	notifiers := notifysvc.Multi{notifysvc.NewLogNotifier(cli.logger)}
	if cli.conf.SendgridAPIKey != "" && !cli.conf.Debug && !cli.dryRun {
		notifiers = append(notifiers, notifysvc.NewSendgridNotifier(cli.conf, cli.logger))
	}
	return notifiers
}

func newValidator() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	return core.NewValidator(translator), translator
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cli *commandLine) snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the academic years, fee buckets and grade levels of a school",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := cli.connect()
			if err != nil {
				return err
			}
			snap, err := b.Snapshots(cli.schoolID).Snapshot(context.Background())
			if err != nil {
				return errors.Wrap(err, "loading snapshot")
			}
			return cli.printJSON(snap)
		},
	}
}
