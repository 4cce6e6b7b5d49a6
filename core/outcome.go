package core

import (
	"fmt"
	"strings"
)

// UnitResult is the outcome of one independent unit of work in a sequential workflow
// (one term, one grade, one fee structure item).
type UnitResult struct {
	Unit  string `json:"unit"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

func (r UnitResult) OK() bool { return r.Err == nil && r.Error == "" }

// Outcome accumulates UnitResults in the order they were attempted.
type Outcome struct {
	Units []UnitResult `json:"units"`
}

func (o *Outcome) Succeed(unit, id string) {
	o.Units = append(o.Units, UnitResult{Unit: unit, ID: id})
}

func (o *Outcome) Fail(unit string, err error) {
	o.Units = append(o.Units, UnitResult{Unit: unit, Error: Message(err), Err: err})
}

func (o Outcome) Total() int { return len(o.Units) }

func (o Outcome) Succeeded() int {
	var n int
	for _, u := range o.Units {
		if u.OK() {
			n++
		}
	}
	return n
}

func (o Outcome) Failed() int { return o.Total() - o.Succeeded() }

// Failures returns "unit: message" lines for every failed unit.
func (o Outcome) Failures() []string {
	msgs := make([]string, 0, o.Failed())
	for _, u := range o.Units {
		if !u.OK() {
			msgs = append(msgs, u.Unit+": "+u.Error)
		}
	}
	return msgs
}

// Summary produces the human-readable "created N of M <noun>" message, followed by failure details.
func (o Outcome) Summary(noun string) string {
	msg := fmt.Sprintf("created %d of %d %s", o.Succeeded(), o.Total(), noun)
	if failures := o.Failures(); len(failures) > 0 {
		msg += fmt.Sprintf("; %d failed (%s)", len(failures), strings.Join(failures, "; "))
	}
	return msg
}
