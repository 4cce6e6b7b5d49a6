package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/aminofabian/squlll/apps/api/echo"
	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/academic"
	"github.com/aminofabian/squlll/core/fees"
	logsvc "github.com/aminofabian/squlll/services/logger"
	notifysvc "github.com/aminofabian/squlll/services/notify"
	"github.com/aminofabian/squlll/services/schoolapi"
	"github.com/aminofabian/squlll/storage/database"
	inmemdb "github.com/aminofabian/squlll/storage/database/inmem"
	sqlxrepos "github.com/aminofabian/squlll/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// SessionStore is the wizard session repository and, for the postgres store, its database.
type SessionStore struct {
	Repo academic.SessionRepository
	DB   *sqlx.DB // nil for the memory store
}

func (s SessionStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newSessionStore(conf *core.Config, loggerParam DBLoggerParam) SessionStore {
	if conf.Database.SessionStore != core.SessionStorePostgres {
		return SessionStore{Repo: inmemdb.NewSessionRepository(inmemdb.Open())}
	}

	db, err := database.Setup(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return SessionStore{Repo: sqlxrepos.NewSessionRepository(db), DB: db}
}

func newSessionRepository(store SessionStore) academic.SessionRepository {
	return store.Repo
}

func newNotifier(conf *core.Config, logger core.Logger) core.Notifier {
	notifiers := notifysvc.Multi{notifysvc.NewLogNotifier(logger)}
	if conf.SendgridAPIKey != "" && !conf.Debug {
		notifiers = append(notifiers, notifysvc.NewSendgridNotifier(conf, logger))
	}
	return notifiers
}

func newAcademicBackend(b *schoolapi.Backends) academic.Backend { return b }

func newFeesBackend(b *schoolapi.Backends) fees.Backend { return b }

func newValidator(translator ut.Translator) *validator.Validate {
	return core.NewValidator(translator)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	academicSvc academic.ServiceInterface,
	feeSvc fees.ServiceInterface,
	backends *schoolapi.Backends,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(conf, logger, echoapi.Deps{
		AcademicSvc: academicSvc,
		FeeSvc:      feeSvc,
		Snapshots:   backends,
		Translator:  translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newSessionStore))
	must(c.Provide(newSessionRepository))
	must(c.Provide(schoolapi.NewBackends))
	must(c.Provide(newAcademicBackend))
	must(c.Provide(newFeesBackend))
	must(c.Provide(newNotifier))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(academic.NewService, dig.As(new(academic.ServiceInterface))))
	must(c.Provide(fees.NewService, dig.As(new(fees.ServiceInterface))))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
