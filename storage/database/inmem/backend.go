package inmemdb

import (
	"sync"
	"time"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/academic"
	"github.com/aminofabian/squlll/core/fees"
	"github.com/aminofabian/squlll/core/school"
)

// Schools serves one in-memory School per tenant, created on first use.
type Schools struct {
	mutex   sync.Mutex
	schools map[string]*School
	caches  *school.Caches
}

var (
	_ academic.Backend = (*Schools)(nil)
	_ fees.Backend     = (*Schools)(nil)
)

func NewSchools(logger core.Logger, refetchDebounce time.Duration) *Schools {
	s := &Schools{schools: make(map[string]*School)}
	s.caches = school.NewCaches(func(schoolID string) school.Source { return s.School(schoolID) }, logger, refetchDebounce)
	return s
}

// School returns the backend of schoolID.
func (s *Schools) School(schoolID string) *School {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sch, ok := s.schools[schoolID]
	if !ok {
		sch = NewSchool()
		s.schools[schoolID] = sch
	}
	return sch
}

func (s *Schools) AcademicGateway(schoolID string) academic.Gateway { return s.School(schoolID) }

func (s *Schools) Refetcher(schoolID string) school.Refetcher { return s.caches.For(schoolID) }

func (s *Schools) FeeGateway(schoolID string) fees.Gateway { return s.School(schoolID) }

func (s *Schools) FeeStructureFallback(schoolID string) fees.FallbackCreator {
	return s.School(schoolID).CreateFeeStructureFallback
}

func (s *Schools) Snapshots(schoolID string) fees.Snapshots { return s.caches.For(schoolID) }

// Cache exposes the snapshot cache of schoolID.
func (s *Schools) Cache(schoolID string) *school.Cache { return s.caches.For(schoolID) }

func (s *Schools) Close() { s.caches.Close() }
