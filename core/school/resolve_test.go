package school

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/aminofabian/squlll/core"
)

func testSnapshot() Snapshot {
	return Snapshot{
		AcademicYears: []AcademicYear{
			{
				ID:   "ay-1",
				Name: "2024-2025",
				Terms: []Term{
					{ID: "t-1", Name: "Term 1"},
					{ID: "t-2", Name: "Term 2"},
				},
			},
			{ID: "ay-2", Name: "2025-2026"},
		},
		GradeLevels: []GradeLevel{
			{ID: "g-1", Name: "Grade 1"},
			{ID: "g-2", Name: "Grade 2"},
		},
		FeeBuckets: []FeeBucket{{ID: "b-1", Name: "Tuition"}},
	}
}

func TestResolveTerm(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name       string
		year, term string
		wantYear   string
		wantTerm   string
		wantErr    *core.ResolutionError
	}{
		{name: "found", year: "2024-2025", term: "Term 2", wantYear: "ay-1", wantTerm: "t-2"},
		{name: "found after trimming", year: " 2024-2025 ", term: "Term 1 ", wantYear: "ay-1", wantTerm: "t-1"},
		{
			name: "unknown year",
			year: "2023-2024",
			term: "Term 1",
			wantErr: &core.ResolutionError{
				Kind:       KindAcademicYear,
				Name:       "2023-2024",
				Available:  []string{"2024-2025", "2025-2026"},
				Suggestion: "2024-2025",
			},
		},
		{
			name: "unknown term",
			year: "2024-2025",
			term: "Term 3",
			wantErr: &core.ResolutionError{
				Kind:       KindTerm,
				Name:       "Term 3",
				Available:  []string{"Term 1", "Term 2"},
				Suggestion: "Term 1",
			},
		},
		{
			name: "year without terms",
			year: "2025-2026",
			term: "Term 1",
			wantErr: &core.ResolutionError{
				Kind:      KindTerm,
				Name:      "Term 1",
				Available: []string{},
			},
		},
		{
			name: "names are case sensitive",
			year: "2024-2025",
			term: "term 1",
			wantErr: &core.ResolutionError{
				Kind:       KindTerm,
				Name:       "term 1",
				Available:  []string{"Term 1", "Term 2"},
				Suggestion: "Term 1",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTerm(snap, tt.year, tt.term)
			if tt.wantErr != nil {
				rErr, ok := errors.Cause(err).(*core.ResolutionError)
				if !ok {
					t.Fatalf("ResolveTerm() error = %v, want *core.ResolutionError", err)
				}
				assert.Equal(t, tt.wantErr, rErr)
				return
			}
			if err != nil {
				t.Fatalf("ResolveTerm() error = %v", err)
			}
			if got.AcademicYear.ID != tt.wantYear || got.Term.ID != tt.wantTerm {
				t.Errorf("ResolveTerm() = (%s, %s), want (%s, %s)", got.AcademicYear.ID, got.Term.ID, tt.wantYear, tt.wantTerm)
			}
		})
	}
}

func TestResolveGrades(t *testing.T) {
	snap := testSnapshot()

	grades, err := ResolveGrades(snap, []string{"g-2", "g-1"})
	if err != nil {
		t.Fatalf("ResolveGrades() error = %v", err)
	}
	assert.Equal(t, []GradeLevel{{ID: "g-2", Name: "Grade 2"}, {ID: "g-1", Name: "Grade 1"}}, grades)

	_, err = ResolveGrades(snap, []string{"g-1", "g-9"})
	rErr, ok := err.(*core.ResolutionError)
	if !ok {
		t.Fatalf("ResolveGrades() error = %v, want *core.ResolutionError", err)
	}
	assert.Equal(t, KindGrade, rErr.Kind)
	assert.Equal(t, "g-9", rErr.Name)
	assert.Equal(t, []string{"g-1 (Grade 1)", "g-2 (Grade 2)"}, rErr.Available)
}

func TestSnapshot_BucketByName(t *testing.T) {
	snap := testSnapshot()
	if b, ok := snap.BucketByName(" tuition "); !ok || b.ID != "b-1" {
		t.Errorf("BucketByName() = (%v, %v), want b-1", b, ok)
	}
	if _, ok := snap.BucketByName("Transport"); ok {
		t.Error("BucketByName(Transport) found a bucket")
	}
}
