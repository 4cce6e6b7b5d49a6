package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aminofabian/squlll/core/academic"
	inmemdb "github.com/aminofabian/squlll/storage/database/inmem"
)

func (cli *commandLine) academicYearCmd() *cobra.Command {
	var (
		ny    academic.NewAcademicYear
		terms []string
	)
	cmd := &cobra.Command{
		Use:   "academicyear",
		Short: "Create an academic year and its terms",
		Example: `  admin academicyear --school SCHOOL_ID --name 2025-2026 --start 2025-01-06 --end 2025-11-28 \
    --term "Term 1:2025-01-06:2025-04-04" --term "Term 2:2025-04-28:2025-08-01"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			drafts, err := parseTerms(terms)
			if err != nil {
				return err
			}
			return cli.createAcademicYear(ny, drafts)
		},
	}
	cmd.Flags().StringVar(&ny.Name, "name", "", "The academic year name, e.g. 2025-2026")
	cmd.Flags().StringVar(&ny.StartDate, "start", "", "The first day of the academic year (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ny.EndDate, "end", "", "The last day of the academic year (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&terms, "term", nil, `A term as "Name:start:end", in order; repeatable`)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("term")
	return cmd
}

// parseTerms parses "Name:start:end" term flags.
func parseTerms(values []string) ([]academic.TermDraft, error) {
	drafts := make([]academic.TermDraft, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("term %q must be of form NAME:START:END", v)
		}
		drafts = append(drafts, academic.TermDraft{Name: parts[0], StartDate: parts[1], EndDate: parts[2]})
	}
	return drafts, nil
}

// createAcademicYear runs the wizard in one go. The session lives in memory for the duration of the command.
func (cli *commandLine) createAcademicYear(ny academic.NewAcademicYear, drafts []academic.TermDraft) error {
	b, err := cli.connect()
	if err != nil {
		return err
	}
	validate, translator := newValidator()
	svc := academic.NewService(cli.conf, inmemdb.NewSessionRepository(inmemdb.Open()), b, cli.notifier(), cli.logger, validate, translator)

	ctx := context.Background()
	tenant := cli.tenant()
	state, err := svc.Start(ctx, tenant)
	if err != nil {
		return errors.Wrap(err, "starting wizard")
	}
	if state, err = svc.SubmitAcademicYear(ctx, tenant, state.ID, ny); err != nil {
		return errors.Wrap(err, "creating academic year")
	}
	fmt.Fprintf(cli.out, "created academic year %s (%s)\n", ny.Name, state.AcademicYearID)

	if state, err = svc.SetTerms(ctx, tenant, state.ID, drafts); err != nil {
		return errors.Wrap(err, "setting terms")
	}
	if state, err = svc.SubmitTerms(ctx, tenant, state.ID); err != nil {
		return errors.Wrap(err, "creating terms")
	}
	return cli.printJSON(academic.NewWizard(&state, nil, nil).Result())
}
