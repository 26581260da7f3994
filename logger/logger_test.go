package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	dev, err := New(true)
	assert.NoError(t, err)
	check.True(t, dev.Core().Enabled(zap.DebugLevel))

	prod, err := New(false)
	assert.NoError(t, err)
	check.False(t, prod.Core().Enabled(zap.DebugLevel))
}

func TestNewTerminal(t *testing.T) {
	var buf bytes.Buffer
	log := NewTerminal(false, &buf)
	log.Debug("hidden")
	log.Info("💓 Heartbeat", zap.String("status", "running"))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, 1, len(lines))
	var entry map[string]interface{}
	assert.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	check.Equal(t, "💓 Heartbeat", entry["msg"])
	check.Equal(t, "running", entry["status"])

	buf.Reset()
	dev := NewTerminal(true, &buf)
	dev.Debug("shown")
	check.True(t, strings.Contains(buf.String(), "shown"))
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	entries := logs.FilterMessage("request").All()
	assert.Equal(t, 1, len(entries))
	fields := entries[0].ContextMap()
	check.Equal(t, "/api/health", fields["path"])
	check.Equal(t, "GET", fields["method"])
	check.Equal[any](t, int64(http.StatusTeapot), fields["status"])
}
