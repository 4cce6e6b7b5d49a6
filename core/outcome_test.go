package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_Summary(t *testing.T) {
	tests := []struct {
		name      string
		build     func(o *Outcome)
		noun      string
		want      string
		wantOK    int
		wantFails int
	}{
		{
			name:  "nothing attempted",
			build: func(o *Outcome) {},
			noun:  "terms",
			want:  "created 0 of 0 terms",
		},
		{
			name: "all succeeded",
			build: func(o *Outcome) {
				o.Succeed("Term 1", "a")
				o.Succeed("Term 2", "b")
			},
			noun:   "terms",
			want:   "created 2 of 2 terms",
			wantOK: 2,
		},
		{
			name: "partial failure",
			build: func(o *Outcome) {
				o.Succeed("Term 1", "a")
				o.Fail("Term 2", &APIError{Op: "create term", Status: 400, Message: "overlapping dates"})
				o.Succeed("Term 3", "c")
			},
			noun:      "terms",
			want:      "created 2 of 3 terms; 1 failed (Term 2: overlapping dates)",
			wantOK:    2,
			wantFails: 1,
		},
		{
			name: "all failed",
			build: func(o *Outcome) {
				o.Fail("Tuition", errors.New("boom"))
				o.Fail("Transport", errors.New("bang"))
			},
			noun:      "items",
			want:      "created 0 of 2 items; 2 failed (Tuition: boom; Transport: bang)",
			wantFails: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Outcome
			tt.build(&o)
			if got := o.Summary(tt.noun); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
			if o.Succeeded() != tt.wantOK {
				t.Errorf("Succeeded() = %d, want %d", o.Succeeded(), tt.wantOK)
			}
			if o.Failed() != tt.wantFails {
				t.Errorf("Failed() = %d, want %d", o.Failed(), tt.wantFails)
			}
			assert.Equal(t, tt.wantOK+tt.wantFails, o.Total())
		})
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		succeeded, failed int
		want              NotificationLevel
	}{
		{succeeded: 3, failed: 0, want: LevelSuccess},
		{succeeded: 0, failed: 0, want: LevelSuccess},
		{succeeded: 2, failed: 1, want: LevelWarning},
		{succeeded: 0, failed: 2, want: LevelError},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.succeeded, tt.failed); got != tt.want {
			t.Errorf("LevelFor(%d, %d) = %v, want %v", tt.succeeded, tt.failed, got, tt.want)
		}
	}
}
