package logsvc

import (
	"bytes"
	"fmt"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aminofabian/squlll/core"
)

func newTestLogger(debug bool) (*RollbarLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	conf := core.NewTestConfig()
	conf.Debug = debug
	return NewRollbarLogger(log.New(&buf, "", 0), conf), &buf
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger, _ := newTestLogger(true)

	var out core.Outcome
	out.Succeed("Term 1", "t1")
	out.Fail("Term 2", fmt.Errorf("overlaps"))
	err := fmt.Errorf("boom")

	tests := []struct {
		name string
		args []interface{}
		want []interface{}
	}{
		{name: "message only", want: []interface{}{"msg"}},
		{name: "error", args: []interface{}{err}, want: []interface{}{"msg", err}},
		{
			name: "tenant",
			args: []interface{}{err, core.Tenant{SchoolID: "school-1"}},
			want: []interface{}{"msg", err, map[string]interface{}{"school_id": "school-1"}},
		},
		{
			name: "tenant with user",
			args: []interface{}{core.Tenant{SchoolID: "school-1", Subject: "admin", Email: "admin@school.test"}},
			want: []interface{}{"msg", map[string]interface{}{
				"school_id": "school-1",
				"subject":   "admin",
				"email":     "admin@school.test",
			}},
		},
		{
			name: "outcome and extras",
			args: []interface{}{out, map[string]interface{}{"step": "terms"}},
			want: []interface{}{"msg", map[string]interface{}{
				"succeeded": 1,
				"failed":    1,
				"failures":  []string{"Term 2: overlaps"},
				"step":      "terms",
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.prepare("msg", tt.args))
		})
	}
}

func TestRollbarLogger_prepare_concurrentTenants(t *testing.T) {
	logger, _ := newTestLogger(true)

	var wg sync.WaitGroup
	got := make([]interface{}, 20)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			args := logger.prepare("msg", []interface{}{core.Tenant{SchoolID: fmt.Sprintf("school-%d", i)}})
			got[i] = args[len(args)-1].(map[string]interface{})["school_id"]
		}(i)
	}
	wg.Wait()

	for i, schoolID := range got {
		assert.Equal(t, fmt.Sprintf("school-%d", i), schoolID)
	}
}

func TestRollbarLogger_print(t *testing.T) {
	var out core.Outcome
	out.Fail("Grade 2", fmt.Errorf("no term"))

	logger, buf := newTestLogger(false)
	logger.Warn("created 0 of 1 fee structures", out, core.Tenant{SchoolID: "school-1"})
	logger.Debug("not printed")
	logger.Info("plain")

	assert.Equal(t, "[school-1] created 0 of 1 fee structures\n  Grade 2: no term\nplain\n", buf.String())
}
