package logger

import (
	"bytes"
	"errors"
	"log"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestFormatFieldsSortsKeys(t *testing.T) {
	out := formatFields(Fields{"b": 2, "a": "x", "c": 1.5})
	assert.Equal(t, "{a=x, b=2, c=1.50}", out)
	assert.Equal(t, "", formatFields(nil))
}

func TestLevelsWritePrefix(t *testing.T) {
	buf := captureLog(t)

	Info("hello", Fields{"k": "v"})
	Warn("careful", nil)
	Debug("details", nil)
	Error("broken", errors.New("boom"), Fields{"kind": "Internal"})

	out := buf.String()
	assert.Contains(t, out, "[INFO] hello {k=v}")
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "[DEBUG] details")
	assert.Contains(t, out, "[ERROR] broken: boom {kind=Internal}")
}

func TestWithContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/generate/abc", nil)
	c.Set("request_id", "req-1")
	c.Set("user_id", "user-1")

	fields := WithContext(c)
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/generate/abc", fields["path"])
	assert.Equal(t, "user-1", fields["user_id"])
}

func TestFieldsWith(t *testing.T) {
	base := Fields{"a": 1}
	merged := base.With(Fields{"b": 2})

	assert.Len(t, base, 1)
	assert.Equal(t, Fields{"a": 1, "b": 2}, merged)
}
