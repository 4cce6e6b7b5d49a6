package schoolapi

import (
	"net/http"
	"sync"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/academic"
	"github.com/aminofabian/squlll/core/fees"
	"github.com/aminofabian/squlll/core/school"
)

// Backends hands out one Client and one snapshot Cache per school.
type Backends struct {
	conf       core.BackendConfig
	httpClient *http.Client
	logger     core.Logger
	debug      bool

	mutex   sync.Mutex
	clients map[string]*Client
	caches  *school.Caches
}

var (
	_ academic.Backend = (*Backends)(nil)
	_ fees.Backend     = (*Backends)(nil)
)

func NewBackends(conf *core.Config, logger core.Logger) *Backends {
	b := &Backends{
		conf:       conf.Backend,
		httpClient: &http.Client{Timeout: conf.Backend.Timeout},
		logger:     logger,
		debug:      conf.Debug,
		clients:    make(map[string]*Client),
	}
	b.caches = school.NewCaches(func(schoolID string) school.Source { return b.Client(schoolID) }, logger, conf.Workflow.RefetchDebounce)
	return b
}

// Client returns the backend client acting for schoolID.
func (b *Backends) Client(schoolID string) *Client {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	c, ok := b.clients[schoolID]
	if !ok {
		c = NewClient(b.conf, schoolID, b.httpClient, b.logger)
		c.SetDebug(b.debug)
		b.clients[schoolID] = c
	}
	return c
}

func (b *Backends) AcademicGateway(schoolID string) academic.Gateway { return b.Client(schoolID) }

func (b *Backends) Refetcher(schoolID string) school.Refetcher { return b.caches.For(schoolID) }

func (b *Backends) FeeGateway(schoolID string) fees.Gateway { return b.Client(schoolID) }

func (b *Backends) FeeStructureFallback(schoolID string) fees.FallbackCreator {
	return b.Client(schoolID).CreateFeeStructureFallback
}

func (b *Backends) Snapshots(schoolID string) fees.Snapshots { return b.caches.For(schoolID) }

func (b *Backends) Cache(schoolID string) *school.Cache { return b.caches.For(schoolID) }

func (b *Backends) Close() { b.caches.Close() }
