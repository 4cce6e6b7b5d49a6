package school

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/aminofabian/squlll/core"
)

const (
	KindAcademicYear = "academic year"
	KindTerm         = "term"
	KindGrade        = "grade"

	minSuggestionRatio = .6
)

// Resolved holds the server ids behind a pair of academic year / term names.
type Resolved struct {
	AcademicYear AcademicYear
	Term         Term
}

// ResolveTerm maps human-readable academic year and term names to the ids found in the snapshot.
func ResolveTerm(snap Snapshot, yearName, termName string) (Resolved, error) {
	ay, ok := snap.FindAcademicYear(yearName)
	if !ok {
		return Resolved{}, newResolutionError(KindAcademicYear, yearName, snap.AcademicYearNames())
	}
	term, ok := ay.FindTerm(termName)
	if !ok {
		return Resolved{}, newResolutionError(KindTerm, termName, ay.TermNames())
	}
	return Resolved{AcademicYear: ay, Term: term}, nil
}

// ResolveGrades returns the grade levels for ids, in the given order.
func ResolveGrades(snap Snapshot, ids []string) ([]GradeLevel, error) {
	grades := make([]GradeLevel, 0, len(ids))
	for _, id := range ids {
		g, ok := snap.GradeByID(id)
		if !ok {
			names := make([]string, 0, len(snap.GradeLevels))
			for _, gl := range snap.GradeLevels {
				names = append(names, gl.ID+" ("+gl.Name+")")
			}
			return nil, &core.ResolutionError{Kind: KindGrade, Name: id, Available: names}
		}
		grades = append(grades, g)
	}
	return grades, nil
}

func newResolutionError(kind, name string, available []string) error {
	return &core.ResolutionError{
		Kind:       kind,
		Name:       strings.TrimSpace(name),
		Available:  available,
		Suggestion: closestMatch(name, available),
	}
}

// closestMatch returns the option most similar to name, if similar enough.
func closestMatch(name string, options []string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	var (
		best  string
		ratio float64
	)
	for _, opt := range options {
		m := difflib.NewMatcher(strings.Split(name, ""), strings.Split(strings.ToLower(opt), ""))
		if r := m.Ratio(); r > ratio {
			best, ratio = opt, r
		}
	}
	if ratio < minSuggestionRatio {
		return ""
	}
	return best
}
