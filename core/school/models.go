package school

import (
	"strings"
	"time"
)

// AcademicYear is a read-only copy of an academic year owned by the school backend.
type AcademicYear struct {
	ID        string `json:"id"`
	Name      string `json:"name"` // "YYYY-YYYY"
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	IsActive  bool   `json:"isActive"`
	Terms     []Term `json:"terms"`
}

type Term struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	AcademicYearID string `json:"academicYearId,omitempty"`
}

type GradeLevel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FeeBucket struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Snapshot is the read-only view of the school backend that workflows run against.
// It is passed in explicitly at invocation time and never mutated by workflows.
type Snapshot struct {
	AcademicYears []AcademicYear `json:"academicYears"`
	FeeBuckets    []FeeBucket    `json:"feeBuckets"`
	GradeLevels   []GradeLevel   `json:"gradeLevels"`
	FetchedAt     time.Time      `json:"fetchedAt"`
}

func (s Snapshot) FindAcademicYear(name string) (AcademicYear, bool) {
	name = strings.TrimSpace(name)
	for _, ay := range s.AcademicYears {
		if ay.Name == name {
			return ay, true
		}
	}
	return AcademicYear{}, false
}

func (ay AcademicYear) FindTerm(name string) (Term, bool) {
	name = strings.TrimSpace(name)
	for _, t := range ay.Terms {
		if t.Name == name {
			return t, true
		}
	}
	return Term{}, false
}

func (s Snapshot) GradeByID(id string) (GradeLevel, bool) {
	for _, g := range s.GradeLevels {
		if g.ID == id {
			return g, true
		}
	}
	return GradeLevel{}, false
}

// BucketByName matches bucket names case-insensitively.
func (s Snapshot) BucketByName(name string) (FeeBucket, bool) {
	name = strings.TrimSpace(name)
	for _, b := range s.FeeBuckets {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return FeeBucket{}, false
}

func (s Snapshot) AcademicYearNames() []string {
	names := make([]string, 0, len(s.AcademicYears))
	for _, ay := range s.AcademicYears {
		names = append(names, ay.Name)
	}
	return names
}

func (ay AcademicYear) TermNames() []string {
	names := make([]string, 0, len(ay.Terms))
	for _, t := range ay.Terms {
		names = append(names, t.Name)
	}
	return names
}
