package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/aminofabian/squlll/core"
)

// RollbarLogger prints to a std logger and reports to rollbar.
// A core.Tenant argument becomes the rollbar person; a core.Outcome argument is reported as custom data.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare turns args into rollbar's (msg, error, extras) form. The tenant goes into the extras of
// the item, never into rollbar's process-wide person.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	extras := make(map[string]interface{})
	newArgs := make([]interface{}, 0, len(args)+2)
	newArgs = append(newArgs, msg)

	var tenant *core.Tenant
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Tenant:
			if tenant == nil {
				tenant = &a
			}
		case core.Outcome:
			extras["succeeded"] = a.Succeeded()
			extras["failed"] = a.Failed()
			if failures := a.Failures(); len(failures) > 0 {
				extras["failures"] = failures
			}
		case map[string]interface{}:
			for k, v := range a {
				extras[k] = v
			}
		default:
			newArgs = append(newArgs, arg)
		}
	}

	if tenant != nil {
		extras["school_id"] = tenant.SchoolID
		if tenant.Subject != "" {
			extras["subject"] = tenant.Subject
		}
		if tenant.Email != "" {
			extras["email"] = tenant.Email
		}
	}
	if len(extras) > 0 {
		newArgs = append(newArgs, extras)
	}
	return newArgs
}

// format returns the printed line: the message, prefixed with the school when one is given.
func format(msg string, args []interface{}) string {
	for _, arg := range args {
		if tenant, ok := arg.(core.Tenant); ok && tenant.SchoolID != "" {
			return "[" + tenant.SchoolID + "] " + msg
		}
	}
	return msg
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(format(msg, args))
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Tenant:
		case core.Outcome:
			for _, f := range a.Failures() {
				l.std.Println("  " + f)
			}
		default:
			l.std.Printf("%+v\n", a)
		}
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.print(msg, args)
	l.std.Fatal(format(msg, args))
}
