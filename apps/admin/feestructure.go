package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/fees"
)

var errInputClosed = errors.New("input closed before every amount was reviewed")

type feeStructureOptions struct {
	file          string
	gradeIDs      []string
	ensureBuckets bool
	edit          bool
}

func (cli *commandLine) feeStructureCmd() *cobra.Command {
	var opts feeStructureOptions
	cmd := &cobra.Command{
		Use:     "feestructure",
		Short:   "Create fee structures from a JSON draft for one or more grades",
		Example: "  admin feestructure --school SCHOOL_ID --file draft.json --grade GRADE_ID --grade GRADE_ID",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.createFeeStructures(opts)
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "Path to the fee structure draft (JSON)")
	cmd.Flags().StringSliceVar(&opts.gradeIDs, "grade", nil, "A grade level id; repeatable")
	cmd.Flags().BoolVar(&opts.ensureBuckets, "ensure-buckets", true, "Create the draft's fee buckets that do not exist yet")
	cmd.Flags().BoolVar(&opts.edit, "edit", false, "Review the component amounts of every bucket before creating")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("grade")
	return cmd
}

func readForm(path string) (fees.FeeStructureForm, error) {
	var form fees.FeeStructureForm
	data, err := os.ReadFile(path)
	if err != nil {
		return form, errors.Wrap(err, "reading draft")
	}
	if err = json.Unmarshal(data, &form); err != nil {
		return form, errors.Wrapf(err, "decoding draft %s", path)
	}
	return form, nil
}

func (cli *commandLine) createFeeStructures(opts feeStructureOptions) error {
	form, err := readForm(opts.file)
	if err != nil {
		return err
	}
	b, err := cli.connect()
	if err != nil {
		return err
	}
	validate, translator := newValidator()

	if opts.edit {
		if err = cli.editBuckets(&form, bufio.NewScanner(cli.in), validate, translator); err != nil {
			return err
		}
	}

	ctx := context.Background()
	tenant := cli.tenant()
	svc := fees.NewService(b, cli.notifier(), cli.logger, validate, translator)

	if opts.ensureBuckets {
		out, err := svc.EnsureBuckets(ctx, tenant, &form)
		if err != nil {
			return errors.Wrap(err, "ensuring fee buckets")
		}
		fmt.Fprintln(cli.out, out.Summary("fee buckets"))
	}

	report, err := svc.CreateFeeStructures(ctx, tenant, form, opts.gradeIDs)
	if err != nil {
		return errors.Wrap(err, "creating fee structures")
	}
	return cli.printJSON(report)
}

// editBuckets prompts for a new amount for every component; an empty answer keeps the current one.
// Edited buckets are validated and written back to the form.
func (cli *commandLine) editBuckets(
	form *fees.FeeStructureForm,
	scanner *bufio.Scanner,
	validate *validator.Validate,
	translator ut.Translator,
) error {
	for ti, ts := range form.TermStructures {
		for bi, bucket := range ts.Buckets {
			editor := fees.NewCategoryEditor(bucket, form.BucketCommitter(ti, bi), validate, translator)
			fmt.Fprintf(cli.out, "%s / %s\n", ts.Term, bucket.Name)

			for ci, comp := range bucket.Components {
				fmt.Fprintf(cli.out, "  %s [%s]: ", comp.Name, comp.Amount)
				if !scanner.Scan() {
					fmt.Fprintln(cli.out)
					editor.Discard()
					if err := scanner.Err(); err != nil {
						return errors.Wrap(err, "reading amounts")
					}
					return errInputClosed
				}
				if amount := core.CleanString(scanner.Text()); amount != "" {
					if err := editor.SetComponentAmount(ci, amount); err != nil {
						return err
					}
				}
			}

			if !editor.Dirty() {
				editor.Discard()
				continue
			}
			if err := editor.Save(); err != nil {
				return errors.Wrapf(err, "bucket %s", strings.TrimSpace(bucket.Name))
			}
		}
	}
	return nil
}
