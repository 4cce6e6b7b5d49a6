package fees

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/aminofabian/squlll/core"
)

var (
	// errors
	ErrComponentIndex = errors.New("fee component index out of range")
	ErrEditorClosed   = errors.New("editor was already saved or discarded")
)

// CategoryEditor edits the components of one fee bucket of a draft locally.
// Edits reach the draft only through Save; nothing is sent to the school backend.
type CategoryEditor struct {
	original FeeBucketForm
	current  FeeBucketForm
	commit   func(FeeBucketForm)
	closed   bool

	validate   *validator.Validate
	translator ut.Translator
}

// NewCategoryEditor starts editing a copy of bucket. commit receives the edited bucket on Save.
func NewCategoryEditor(bucket FeeBucketForm, commit func(FeeBucketForm), validate *validator.Validate, translator ut.Translator) *CategoryEditor {
	return &CategoryEditor{
		original:   copyBucket(bucket),
		current:    copyBucket(bucket),
		commit:     commit,
		validate:   validate,
		translator: translator,
	}
}

// Bucket returns a copy of the edited bucket.
func (e *CategoryEditor) Bucket() FeeBucketForm { return copyBucket(e.current) }

func (e *CategoryEditor) SetName(name string) error {
	if e.closed {
		return ErrEditorClosed
	}
	e.current.Name = name
	return nil
}

func (e *CategoryEditor) SetOptional(optional bool) error {
	if e.closed {
		return ErrEditorClosed
	}
	e.current.IsOptional = optional
	return nil
}

func (e *CategoryEditor) AddComponent(c FeeComponentForm) error {
	if e.closed {
		return ErrEditorClosed
	}
	e.current.Components = append(e.current.Components, c)
	return nil
}

func (e *CategoryEditor) RemoveComponent(i int) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	comps := e.current.Components
	e.current.Components = append(comps[:i:i], comps[i+1:]...)
	return nil
}

func (e *CategoryEditor) SetComponentName(i int, name string) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	e.current.Components[i].Name = name
	return nil
}

func (e *CategoryEditor) SetComponentCategory(i int, category string) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	e.current.Components[i].Category = category
	return nil
}

func (e *CategoryEditor) SetComponentAmount(i int, amount string) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	e.current.Components[i].Amount = amount
	return nil
}

// Dirty reports whether the bucket differs from the one the editor started with.
func (e *CategoryEditor) Dirty() bool {
	if e.original.Name != e.current.Name ||
		e.original.IsOptional != e.current.IsOptional ||
		len(e.original.Components) != len(e.current.Components) {
		return true
	}
	for i := range e.original.Components {
		if e.original.Components[i] != e.current.Components[i] {
			return true
		}
	}
	return false
}

// Save validates the edited bucket and commits it to the parent draft.
// On validation failure the editor stays open with its edits.
func (e *CategoryEditor) Save() error {
	if e.closed {
		return ErrEditorClosed
	}
	bucket := copyBucket(e.current)
	bucket.Name = core.CleanString(bucket.Name)
	for i := range bucket.Components {
		c := &bucket.Components[i]
		c.Name = core.CleanString(c.Name)
		c.Category = core.CleanString(c.Category)
		c.Amount = core.CleanString(c.Amount)
	}
	if err := e.validate.Struct(bucket); err != nil {
		return core.ValidationErrorFrom(err, e.translator)
	}
	if e.commit != nil {
		e.commit(bucket)
	}
	e.closed = true
	return nil
}

// Discard drops every edit; the parent draft is left untouched.
func (e *CategoryEditor) Discard() {
	e.current = copyBucket(e.original)
	e.closed = true
}

func (e *CategoryEditor) checkIndex(i int) error {
	if e.closed {
		return ErrEditorClosed
	}
	if i < 0 || i >= len(e.current.Components) {
		return errors.Wrap(ErrComponentIndex, fmt.Sprintf("index %d", i))
	}
	return nil
}

func copyBucket(b FeeBucketForm) FeeBucketForm {
	if b.ID != nil {
		id := *b.ID
		b.ID = &id
	}
	b.Components = append([]FeeComponentForm(nil), b.Components...)
	return b
}
