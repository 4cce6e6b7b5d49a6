package fees

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aminofabian/squlll/core"
)

type BoardingType string

const (
	BoardingDay      BoardingType = "day"
	BoardingBoarding BoardingType = "boarding"
	BoardingBoth     BoardingType = "both"
)

// FeeStructureForm is the client-only draft of a fee structure. It is never persisted as-is.
type FeeStructureForm struct {
	Name           string                 `json:"name" validate:"required,notblank"`
	Grade          string                 `json:"grade"`
	BoardingType   BoardingType           `json:"boarding_type" validate:"omitempty,oneof=day boarding both"`
	AcademicYear   string                 `json:"academic_year"` // name, not id
	TermStructures []TermFeeStructureForm `json:"term_structures" validate:"required,min=1"`
}

type TermFeeStructureForm struct {
	Term                 string          `json:"term"`          // name
	AcademicYear         string          `json:"academic_year"` // name
	DueDate              string          `json:"due_date"`
	LatePaymentFee       string          `json:"late_payment_fee"`
	EarlyPaymentDiscount string          `json:"early_payment_discount"`
	Buckets              []FeeBucketForm `json:"buckets"`
}

// FeeBucketForm is a bucket of fee components. A nil ID means the bucket was never persisted.
type FeeBucketForm struct {
	ID          *string            `json:"id,omitempty"`
	Type        string             `json:"type"`
	Name        string             `json:"name" validate:"required,notblank"`
	Description string             `json:"description"`
	IsOptional  bool               `json:"is_optional"`
	Components  []FeeComponentForm `json:"components" validate:"dive"`
}

func (b FeeBucketForm) Persisted() bool {
	return b.ID != nil && strings.TrimSpace(*b.ID) != ""
}

type FeeComponentForm struct {
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description"`
	Amount      string `json:"amount" validate:"required,decimalamt"` // decimal string
	Category    string `json:"category"`
}

// ParsedAmount returns the component amount; ok is false when it does not parse.
func (c FeeComponentForm) ParsedAmount() (amount decimal.Decimal, ok bool) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.Amount))
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// academicYearName is the academic year a term structure belongs to, falling back to the form's.
func (f FeeStructureForm) academicYearName(ts TermFeeStructureForm) string {
	if name := core.CleanString(ts.AcademicYear); name != "" {
		return name
	}
	return core.CleanString(f.AcademicYear)
}

// BucketCommitter returns the callback that writes an edited bucket back into the draft.
func (f *FeeStructureForm) BucketCommitter(termIdx, bucketIdx int) func(FeeBucketForm) {
	return func(b FeeBucketForm) {
		if termIdx < 0 || termIdx >= len(f.TermStructures) {
			return
		}
		buckets := f.TermStructures[termIdx].Buckets
		if bucketIdx < 0 || bucketIdx >= len(buckets) {
			return
		}
		buckets[bucketIdx] = b
	}
}

// Server-side entities.

type NewFeeStructure struct {
	Name           string `json:"name"`
	AcademicYearID string `json:"academicYearId"`
	TermID         string `json:"termId"`
	GradeLevelID   string `json:"gradeLevelId"`
	BoardingType   string `json:"boardingType,omitempty"`
}

type FeeStructure struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AcademicYearID string `json:"academicYearId"`
	TermID         string `json:"termId"`
	GradeLevelID   string `json:"gradeLevelId,omitempty"`
}

type NewFeeStructureItem struct {
	FeeStructureID string          `json:"feeStructureId"`
	FeeBucketID    string          `json:"feeBucketId"`
	Amount         decimal.Decimal `json:"amount"`
	IsMandatory    bool            `json:"isMandatory"`
}

type FeeStructureItem struct {
	ID             string          `json:"id"`
	FeeStructureID string          `json:"feeStructureId"`
	FeeBucketID    string          `json:"feeBucketId"`
	Amount         decimal.Decimal `json:"amount"`
	IsMandatory    bool            `json:"isMandatory"`
}

type NewFeeBucket struct {
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description"`
}

func (nb *NewFeeBucket) Clean() {
	nb.Name = core.CleanString(nb.Name)
	nb.Description = core.CleanString(nb.Description)
}

// UpdateFeeBucket defines what may be provided to modify an existing fee bucket.
type UpdateFeeBucket struct {
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (ub *UpdateFeeBucket) Clean() {
	ub.Name = core.CleanString(ub.Name)
	ub.Description = core.CleanString(ub.Description)
}
