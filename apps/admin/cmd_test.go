package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/aminofabian/squlll/apps/api/echo"
	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/academic"
	"github.com/aminofabian/squlll/core/fees"
	"github.com/aminofabian/squlll/core/school"
	"github.com/aminofabian/squlll/services/schoolapi"
	"github.com/aminofabian/squlll/storage/database/inmem"
	"github.com/aminofabian/squlll/tests"
)

type fixture struct {
	cli     *commandLine
	out     *bytes.Buffer
	schools *inmemdb.Schools
}

func setup(t *testing.T, input string) fixture {
	conf := core.NewTestConfig()
	logger := &testutil.Logger{}
	schools := inmemdb.NewSchools(logger, conf.Workflow.RefetchDebounce)
	t.Cleanup(schools.Close)

	var out bytes.Buffer
	cli := newCommandLine(conf, logger, strings.NewReader(input), &out)
	cli.backend = schools
	return fixture{cli: cli, out: &out, schools: schools}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, newCLI func() *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := newCLI().run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if !strings.Contains(err.Error(), tt.wantErrStr) {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, want an error")
			}
		})
	}
}

// decodeLast decodes the JSON document printed last.
func decodeLast(t *testing.T, out *bytes.Buffer, v interface{}) {
	s := out.String()
	i := strings.Index(s, "{")
	if i < 0 {
		t.Fatalf("no JSON in output %q", s)
	}
	if err := json.Unmarshal([]byte(s[i:]), v); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", s[i:], err)
	}
}

func Test_commandLine_run(t *testing.T) {
	runCLITests(t, func() *commandLine { return setup(t, "").cli }, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
		{name: "no school", args: []string{"snapshot"}, wantErr: errNoSchool},
	})
}

func Test_commandLine_connect(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Backend.Token = ""
	logger := &testutil.Logger{}

	t.Run("empty token", func(t *testing.T) {
		readPasswordFunc = func(fd int) ([]byte, error) { return nil, nil }
		cli := newCommandLine(conf, logger, strings.NewReader(""), io.Discard)
		cli.schoolID = "school-1"
		_, err := cli.connect()
		assert.Equal(t, errNoToken, err)
	})

	t.Run("prompted token", func(t *testing.T) {
		readPasswordFunc = func(fd int) ([]byte, error) { return []byte("backend-token"), nil }
		cli := newCommandLine(conf, logger, strings.NewReader(""), io.Discard)
		cli.schoolID = "school-1"
		defer cli.close()

		b, err := cli.connect()
		if assert.NoError(t, err) {
			assert.IsType(t, &schoolapi.Backends{}, b)
			assert.Equal(t, "backend-token", conf.Backend.Token)
		}
	})

	t.Run("dry run", func(t *testing.T) {
		cli := newCommandLine(core.NewTestConfig(), logger, strings.NewReader(""), io.Discard)
		cli.schoolID = "school-1"
		cli.dryRun = true
		defer cli.close()

		b, err := cli.connect()
		if assert.NoError(t, err) {
			assert.IsType(t, &inmemdb.Schools{}, b)
		}
	})
}

func Test_commandLine_migrate(t *testing.T) {
	migrateFunc = func(conf *core.Config, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	defer func() { migrateFunc = migrateDB }()

	runCLITests(t, func() *commandLine { return setup(t, "").cli }, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func Test_commandLine_purge(t *testing.T) {
	repo := inmemdb.NewSessionRepository(inmemdb.Open())
	ctx := context.Background()
	for _, expiresAt := range []time.Time{time.Now().Add(-time.Minute), time.Now().Add(time.Hour)} {
		state := academic.State{ID: uuid.New().String(), SchoolID: "school-1", Step: academic.StepAcademicYear, ExpiresAt: expiresAt}
		if _, err := repo.CreateSession(ctx, state); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}
	openSessionsFunc = func(*core.Config) (academic.SessionRepository, io.Closer, error) {
		return repo, nopCloser{}, nil
	}
	defer func() { openSessionsFunc = openSessions }()

	fx := setup(t, "")
	if err := fx.cli.run([]string{"admin", "purge"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}
	assert.Equal(t, "purged 1 expired wizard sessions\n", fx.out.String())
}

func Test_commandLine_token(t *testing.T) {
	runCLITests(t, func() *commandLine { return setup(t, "").cli }, []cliTest{
		{name: "no school", args: []string{"token"}, wantErr: errNoSchool},
	})

	fx := setup(t, "")
	if err := fx.cli.run([]string{"admin", "token", "--school", "school-1", "--email", "bursar@school.test", "--admin"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}

	var claims echoapi.Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(fx.out.String()), &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(fx.cli.conf.SecretKey), nil
	})
	if assert.NoError(t, err) {
		assert.Equal(t, "school-1", claims.SchoolID)
		assert.Equal(t, "bursar@school.test", claims.Email)
		assert.True(t, claims.IsAdmin)
	}
}

func Test_commandLine_academicYear(t *testing.T) {
	runCLITests(t, func() *commandLine { return setup(t, "").cli }, []cliTest{
		{name: "missing flags", args: []string{"academicyear", "--school", "school-1"}, wantErrStr: "required flag(s)"},
		{
			name:       "malformed term",
			args:       []string{"academicyear", "--school", "school-1", "--name", "2025", "--start", "2025-01-06", "--end", "2025-11-28", "--term", "Term 1"},
			wantErrStr: `term "Term 1" must be of form NAME:START:END`,
		},
		{
			name:       "invalid dates",
			args:       []string{"academicyear", "--school", "school-1", "--name", "2025", "--start", "2025-11-28", "--end", "2025-01-06", "--term", "Term 1:2025-01-06:2025-04-04"},
			wantErrStr: "creating academic year",
		},
	})

	fx := setup(t, "")
	fx.schools.School("school-1").FailTerm("Term 2", "Term 2 overlaps another term")
	err := fx.cli.run([]string{"admin", "academicyear", "--school", "school-1",
		"--name", "2025-2026", "--start", "2025-01-06", "--end", "2025-11-28",
		"--term", "Term 1:2025-01-06:2025-04-04",
		"--term", "Term 2:2025-04-28:2025-08-01",
	})
	if err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}

	var result academic.Result
	decodeLast(t, fx.out, &result)
	assert.Equal(t, "2025-2026", result.Name)
	assert.NotEmpty(t, result.AcademicYearID)
	if assert.Len(t, result.Terms, 1) {
		assert.Equal(t, "Term 1", result.Terms[0].Name)
		assert.Equal(t, result.AcademicYearID, result.Terms[0].AcademicYearID)
	}
	assert.Contains(t, result.Summary, "created 1 of 2 terms")
}

func writeDraft(t *testing.T, form fees.FeeStructureForm) string {
	data, err := json.Marshal(form)
	if err != nil {
		t.Fatalf("json.Marshal() failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "draft.json")
	if err = os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("os.WriteFile() failed: %v", err)
	}
	return path
}

func seedFeeSchool(fx fixture) school.GradeLevel {
	sch := fx.schools.School("school-1")
	sch.AddAcademicYear("2025-2026", "2025-01-06", "2025-11-28", "Term 1", "Term 2")
	return sch.AddGradeLevel("Grade 1")
}

var draft = fees.FeeStructureForm{
	Name:         "Standard fees",
	AcademicYear: "2025-2026",
	TermStructures: []fees.TermFeeStructureForm{{
		Term: "Term 1",
		Buckets: []fees.FeeBucketForm{
			{Name: "Tuition", Components: []fees.FeeComponentForm{{Name: "Tuition", Amount: "15000"}}},
			{Name: "Transport", Components: []fees.FeeComponentForm{{Name: "Bus", Amount: "3000"}}},
		},
	}},
}

func Test_commandLine_feeStructure(t *testing.T) {
	path := writeDraft(t, draft)

	t.Run("flags", func(t *testing.T) {
		runCLITests(t, func() *commandLine { return setup(t, "").cli }, []cliTest{
			{name: "missing flags", args: []string{"feestructure", "--school", "school-1"}, wantErrStr: "required flag(s)"},
			{name: "missing file", args: []string{"feestructure", "--school", "school-1", "--file", path + ".missing", "--grade", "g"}, wantErrStr: "reading draft"},
		})
	})

	t.Run("create", func(t *testing.T) {
		fx := setup(t, "")
		grade := seedFeeSchool(fx)
		if err := fx.cli.run([]string{"admin", "feestructure", "--school", "school-1", "--file", path, "--grade", grade.ID}); err != nil {
			t.Fatalf("cli.run() error = %v", err)
		}
		assert.Contains(t, fx.out.String(), "created 2 of 2 fee buckets")

		var report fees.Report
		decodeLast(t, fx.out, &report)
		assert.Equal(t, 1, report.Processed())
		assert.Len(t, fx.schools.School("school-1").FeeStructureItems(), 2)
	})

	t.Run("edit amounts", func(t *testing.T) {
		fx := setup(t, "16000\n\n")
		grade := seedFeeSchool(fx)
		if err := fx.cli.run([]string{"admin", "feestructure", "--school", "school-1", "--file", path, "--grade", grade.ID, "--edit"}); err != nil {
			t.Fatalf("cli.run() error = %v", err)
		}

		var amounts []string
		for _, item := range fx.schools.School("school-1").FeeStructureItems() {
			amounts = append(amounts, item.Amount.String())
		}
		assert.ElementsMatch(t, []string{"16000", "3000"}, amounts)
	})

	t.Run("edit rejects bad amount", func(t *testing.T) {
		fx := setup(t, "lots\n\n")
		grade := seedFeeSchool(fx)
		err := fx.cli.run([]string{"admin", "feestructure", "--school", "school-1", "--file", path, "--grade", grade.ID, "--edit"})
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), "bucket Tuition")
		}
		assert.Empty(t, fx.schools.School("school-1").FeeStructureItems())
	})

	t.Run("edit input closed", func(t *testing.T) {
		fx := setup(t, "16000\n")
		grade := seedFeeSchool(fx)
		err := fx.cli.run([]string{"admin", "feestructure", "--school", "school-1", "--file", path, "--grade", grade.ID, "--edit"})
		assert.Equal(t, errInputClosed, err)
	})
}

func Test_commandLine_snapshot(t *testing.T) {
	fx := setup(t, "")
	seedFeeSchool(fx)
	if err := fx.cli.run([]string{"admin", "snapshot", "--school", "school-1"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}

	var snap school.Snapshot
	decodeLast(t, fx.out, &snap)
	if assert.Len(t, snap.AcademicYears, 1) {
		assert.Len(t, snap.AcademicYears[0].Terms, 2)
	}
	assert.Len(t, snap.GradeLevels, 1)
}
