package inmemdb

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/academic"
	"github.com/aminofabian/squlll/core/fees"
	"github.com/aminofabian/squlll/core/school"
)

// School is an in-memory school backend for one tenant. Failures can be injected per operation.
type School struct {
	mutex sync.RWMutex

	years      []school.AcademicYear
	buckets    []school.FeeBucket
	grades     []school.GradeLevel
	structures []fees.FeeStructure
	items      []fees.FeeStructureItem

	failYear            error
	failTerms           map[string]error
	failStructure       error
	failFallback        error
	failItems           map[string]error // by fee bucket id
	structureIDOverride *string

	nowFunc func() time.Time
}

var (
	_ academic.Gateway = (*School)(nil)
	_ fees.Gateway     = (*School)(nil)
	_ school.Source    = (*School)(nil)
)

func NewSchool() *School {
	return &School{
		failTerms: make(map[string]error),
		failItems: make(map[string]error),
		nowFunc:   time.Now,
	}
}

func newID() string { return uuid.New().String() }

func rejected(op, msg string) error {
	return &core.APIError{Op: op, Status: http.StatusBadRequest, Message: msg}
}

// Failure injection

// FailAcademicYear makes every academic year creation fail with msg; an empty msg clears it.
func (s *School) FailAcademicYear(msg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failYear = nil
	if msg != "" {
		s.failYear = rejected("create academic year", msg)
	}
}

// FailTerm makes the creation of the term called name fail with msg.
func (s *School) FailTerm(name, msg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failTerms[name] = rejected("create term", msg)
}

func (s *School) FailStructure(msg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failStructure = nil
	if msg != "" {
		s.failStructure = rejected("create fee structure", msg)
	}
}

func (s *School) FailFallback(msg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failFallback = nil
	if msg != "" {
		s.failFallback = rejected("create fee structure", msg)
	}
}

// FailItemFor makes every item creation for the given fee bucket fail with msg.
func (s *School) FailItemFor(bucketID, msg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failItems[bucketID] = rejected("create fee structure item", msg)
}

// StructureIDOverride makes the primary fee structure creation report id instead of a generated one.
func (s *School) StructureIDOverride(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.structureIDOverride = &id
}

// Seeding

func (s *School) AddAcademicYear(name, start, end string, terms ...string) school.AcademicYear {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ay := school.AcademicYear{ID: newID(), Name: name, StartDate: start, EndDate: end, IsActive: true}
	for _, t := range terms {
		ay.Terms = append(ay.Terms, school.Term{ID: newID(), Name: t, AcademicYearID: ay.ID})
	}
	s.years = append(s.years, ay)
	return ay
}

func (s *School) AddGradeLevel(name string) school.GradeLevel {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	g := school.GradeLevel{ID: newID(), Name: name}
	s.grades = append(s.grades, g)
	return g
}

func (s *School) AddFeeBucket(name string) school.FeeBucket {
	b, _ := s.CreateFeeBucket(context.Background(), fees.NewFeeBucket{Name: name})
	return b
}

// academic.Gateway

func (s *School) CreateAcademicYear(_ context.Context, ny academic.NewAcademicYear) (school.AcademicYear, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.failYear != nil {
		return school.AcademicYear{}, s.failYear
	}
	for _, ay := range s.years {
		if ay.Name == ny.Name {
			return school.AcademicYear{}, rejected("create academic year", fmt.Sprintf("academic year %s already exists", ny.Name))
		}
	}
	ay := school.AcademicYear{
		ID:        newID(),
		Name:      ny.Name,
		StartDate: ny.StartDate,
		EndDate:   ny.EndDate,
		IsActive:  true,
	}
	s.years = append(s.years, ay)
	return ay, nil
}

func (s *School) CreateTerm(_ context.Context, academicYearID string, td academic.TermDraft) (school.Term, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err, ok := s.failTerms[td.Name]; ok {
		return school.Term{}, err
	}
	for i := range s.years {
		if s.years[i].ID != academicYearID {
			continue
		}
		term := school.Term{
			ID:             newID(),
			Name:           td.Name,
			StartDate:      td.StartDate,
			EndDate:        td.EndDate,
			AcademicYearID: academicYearID,
		}
		s.years[i].Terms = append(s.years[i].Terms, term)
		return term, nil
	}
	return school.Term{}, &core.APIError{Op: "create term", Status: http.StatusNotFound, Message: "academic year not found"}
}

// fees.Gateway

func (s *School) CreateFeeBucket(_ context.Context, nb fees.NewFeeBucket) (school.FeeBucket, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, b := range s.buckets {
		if strings.EqualFold(b.Name, nb.Name) {
			return school.FeeBucket{}, rejected("create fee bucket", fmt.Sprintf("fee bucket %s already exists", nb.Name))
		}
	}
	b := school.FeeBucket{
		ID:          newID(),
		Name:        nb.Name,
		Description: nb.Description,
		IsActive:    true,
		CreatedAt:   s.nowFunc().UTC(),
	}
	s.buckets = append(s.buckets, b)
	return b, nil
}

func (s *School) UpdateFeeBucket(_ context.Context, id string, ub fees.UpdateFeeBucket) (school.FeeBucket, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range s.buckets {
		if s.buckets[i].ID != id {
			continue
		}
		s.buckets[i].Name = ub.Name
		s.buckets[i].Description = ub.Description
		if ub.IsActive != nil {
			s.buckets[i].IsActive = *ub.IsActive
		}
		return s.buckets[i], nil
	}
	return school.FeeBucket{}, &core.APIError{Op: "update fee bucket", Status: http.StatusNotFound, Message: "fee bucket not found"}
}

func (s *School) DeleteFeeBucket(_ context.Context, id string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range s.buckets {
		if s.buckets[i].ID == id {
			s.buckets = append(s.buckets[:i], s.buckets[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *School) CreateFeeStructure(_ context.Context, ns fees.NewFeeStructure) (fees.FeeStructure, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.failStructure != nil {
		return fees.FeeStructure{}, s.failStructure
	}
	id := newID()
	if s.structureIDOverride != nil {
		id = *s.structureIDOverride
	}
	return s.addStructure(id, ns), nil
}

// CreateFeeStructureFallback is the alternate creation path; it has the fees.FallbackCreator signature.
func (s *School) CreateFeeStructureFallback(_ context.Context, ns fees.NewFeeStructure) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.failFallback != nil {
		return "", s.failFallback
	}
	return s.addStructure(newID(), ns).ID, nil
}

func (s *School) addStructure(id string, ns fees.NewFeeStructure) fees.FeeStructure {
	fs := fees.FeeStructure{
		ID:             id,
		Name:           ns.Name,
		AcademicYearID: ns.AcademicYearID,
		TermID:         ns.TermID,
		GradeLevelID:   ns.GradeLevelID,
	}
	s.structures = append(s.structures, fs)
	return fs
}

func (s *School) CreateFeeStructureItem(_ context.Context, ni fees.NewFeeStructureItem) (fees.FeeStructureItem, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err, ok := s.failItems[ni.FeeBucketID]; ok {
		return fees.FeeStructureItem{}, err
	}
	item := fees.FeeStructureItem{
		ID:             newID(),
		FeeStructureID: ni.FeeStructureID,
		FeeBucketID:    ni.FeeBucketID,
		Amount:         ni.Amount,
		IsMandatory:    ni.IsMandatory,
	}
	s.items = append(s.items, item)
	return item, nil
}

// school.Source

func (s *School) ListAcademicYears(context.Context) ([]school.AcademicYear, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	years := make([]school.AcademicYear, 0, len(s.years))
	for _, ay := range s.years {
		ay.Terms = append([]school.Term(nil), ay.Terms...)
		years = append(years, ay)
	}
	return years, nil
}

func (s *School) ListFeeBuckets(context.Context) ([]school.FeeBucket, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]school.FeeBucket{}, s.buckets...), nil
}

func (s *School) ListGradeLevels(context.Context) ([]school.GradeLevel, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]school.GradeLevel{}, s.grades...), nil
}

// Inspection

func (s *School) FeeStructures() []fees.FeeStructure {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]fees.FeeStructure{}, s.structures...)
}

func (s *School) FeeStructureItems() []fees.FeeStructureItem {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]fees.FeeStructureItem{}, s.items...)
}
