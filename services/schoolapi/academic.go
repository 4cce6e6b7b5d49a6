package schoolapi

import (
	"context"
	"net/http"

	"github.com/aminofabian/squlll/core/academic"
	"github.com/aminofabian/squlll/core/school"
)

var (
	_ academic.Gateway = (*Client)(nil)
	_ school.Source    = (*Client)(nil)
)

type (
	academicYearRequest struct {
		Name      string `json:"name"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}

	termRequest struct {
		Name           string `json:"name"`
		StartDate      string `json:"startDate"`
		EndDate        string `json:"endDate"`
		AcademicYearID string `json:"academicYearId"`
	}
)

func (c *Client) CreateAcademicYear(ctx context.Context, ny academic.NewAcademicYear) (school.AcademicYear, error) {
	var ay school.AcademicYear
	err := c.do(ctx, "create academic year", http.MethodPost, c.conf.AcademicYearsPath, academicYearRequest{
		Name:      ny.Name,
		StartDate: ny.StartDate,
		EndDate:   ny.EndDate,
	}, &ay)
	if err != nil {
		return school.AcademicYear{}, err
	}
	return ay, nil
}

func (c *Client) CreateTerm(ctx context.Context, academicYearID string, td academic.TermDraft) (school.Term, error) {
	var term school.Term
	err := c.do(ctx, "create term", http.MethodPost, c.conf.TermsPath, termRequest{
		Name:           td.Name,
		StartDate:      td.StartDate,
		EndDate:        td.EndDate,
		AcademicYearID: academicYearID,
	}, &term)
	if err != nil {
		return school.Term{}, err
	}
	if term.AcademicYearID == "" {
		term.AcademicYearID = academicYearID
	}
	return term, nil
}

const academicYearsQuery = `query AcademicYears {
  academicYears {
    id
    name
    startDate
    endDate
    isActive
    terms { id name startDate endDate }
  }
}`

func (c *Client) ListAcademicYears(ctx context.Context) ([]school.AcademicYear, error) {
	var data struct {
		AcademicYears []school.AcademicYear `json:"academicYears"`
	}
	if err := c.graphql(ctx, "list academic years", academicYearsQuery, nil, &data); err != nil {
		return nil, err
	}
	for i := range data.AcademicYears {
		ay := &data.AcademicYears[i]
		for j := range ay.Terms {
			if ay.Terms[j].AcademicYearID == "" {
				ay.Terms[j].AcademicYearID = ay.ID
			}
		}
	}
	return data.AcademicYears, nil
}

const gradeLevelsQuery = `query GradeLevels {
  gradeLevels { id name }
}`

func (c *Client) ListGradeLevels(ctx context.Context) ([]school.GradeLevel, error) {
	var data struct {
		GradeLevels []school.GradeLevel `json:"gradeLevels"`
	}
	if err := c.graphql(ctx, "list grade levels", gradeLevelsQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.GradeLevels, nil
}
