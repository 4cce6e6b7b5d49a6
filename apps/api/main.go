package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"time"

	dig_container "github.com/aminofabian/squlll/apps/api/di/dig"
	echoapi "github.com/aminofabian/squlll/apps/api/echo"
	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/academic"
	"github.com/aminofabian/squlll/services/schoolapi"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		store dig_container.SessionStore,
		backends *schoolapi.Backends,
		academicSvc academic.ServiceInterface,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : %s", conf))

		dbLogger := dbLoggerParam.Logger
		defer func() {
			if err := store.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		defer backends.Close()
		defer apiLogger.Info("Application stopped")

		go serveDebug(conf, apiLogger)

		// =========================================================================
		// Purge expired wizard sessions

		purgeCtx, stopPurge := context.WithCancel(context.Background())
		defer stopPurge()
		go purgeExpiredSessions(purgeCtx, academicSvc, conf.Workflow.SessionTTL, apiLogger)

		// =========================================================================
		// Start API Service

		go server.Start()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

// serveDebug exposes /debug/pprof (net/http/pprof) and /debug/vars (expvar) on the debug host.
func serveDebug(conf *core.Config, logger core.Logger) {
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("sessionStore").Set(conf.Database.SessionStore)
	expvar.NewString("schoolBackend").Set(conf.Backend.BaseURL)
	expvar.NewString("refetchDebounce").Set(conf.Workflow.RefetchDebounce.String())

	if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
		logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
	}
}

// purgeExpiredSessions deletes expired wizard sessions every `every` until ctx is done.
func purgeExpiredSessions(ctx context.Context, svc academic.ServiceInterface, every time.Duration, logger core.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				logger.Error(fmt.Sprintf("purging wizard sessions: %v", err), err)
			} else if n > 0 {
				logger.Info(fmt.Sprintf("purged %d expired wizard sessions", n))
			}
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
