package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/rapor/core"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "TEST : ", 0), &core.Config{Env: "TEST", Build: "test"})
	logger.Enable(false)

	logger.Warn(
		"weight total is 60%, not 100%",
		map[string]interface{}{"class_id": "c1"},
		core.Actor{ID: "u1", Email: "guru@sekolah.id", Role: "teacher"},
	)
	logger.Error("querying students", errors.New("connection refused"))

	out := buf.String()
	assert.Contains(t, out, "TEST : WARN: weight total is 60%, not 100%")
	assert.Contains(t, out, "map[class_id:c1]")
	assert.NotContains(t, out, "guru@sekolah.id")
	assert.Contains(t, out, "TEST : ERROR: querying students")
	assert.Contains(t, out, "connection refused")
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := RollbarLogger{}
	err := errors.New("boom")
	extras := map[string]interface{}{"k": "v"}

	got := logger.prepare("msg", []interface{}{err, core.Actor{ID: "u1"}, extras, core.Actor{ID: "u2"}})
	assert.Equal(t, []interface{}{"msg", err, extras}, got)
}
